package protocol

import "encoding/json"

// Message types
const (
	TypePing         = "ping"
	TypePong         = "pong"
	TypeStatus       = "status"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice_candidate"
	TypeCapture      = "capture"
	TypePrepare      = "prepare"
	TypeAnimate      = "animate"
	TypeStop         = "stop"
	TypeProgress     = "progress"
	TypeError        = "error"
)

// Error codes
const (
	ErrCamera         = "CAMERA_ERROR"
	ErrPreview        = "PREVIEW_ERROR"
	ErrNoPosition     = "NO_SAVED_POSITION"
	ErrBusy           = "ANIMATION_RUNNING"
	ErrInvalidMessage = "INVALID_MESSAGE"
)

// Message is the base envelope for all WebSocket messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PingPayload for ping messages
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// PongPayload for pong messages
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// StatusPayload describes the server's view of the camera and the
// saved animation endpoints
type StatusPayload struct {
	CameraConnected bool   `json:"camera_connected"`
	PreviewActive   bool   `json:"preview_active"`
	DeviceAddress   string `json:"device_address"`
	Transport       string `json:"transport"`
	HasStart        bool   `json:"has_start"`
	HasEnd          bool   `json:"has_end"`
	Animating       bool   `json:"animating"`
}

// SDPPayload for offer/answer messages
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// ICECandidatePayload for ICE candidate messages
type ICECandidatePayload struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdp_mid"`
	SDPMLineIndex uint16 `json:"sdp_mline_index"`
}

// CapturePayload asks the server to record the camera's current
// position under a slot name ("start" or "end")
type CapturePayload struct {
	Slot string `json:"slot"`
}

// AnimatePayload starts a run from the saved start to the saved end
type AnimatePayload struct {
	Seconds float64 `json:"seconds"`
}

// ProgressPayload reports animation progress after each issued step
type ProgressPayload struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// ParsePayload unmarshals the payload into the given struct
func (m *Message) ParsePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
