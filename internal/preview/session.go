package preview

import (
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v3"
)

// Session is one browser's WebRTC leg of the preview: a peer
// connection with a single H264 track fed from the Stream's RTP
// packets.
type Session struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticRTP
	onICE func(candidate *webrtc.ICECandidate)

	mu     sync.Mutex
	closed bool
}

// SessionConfig holds the ICE servers used for connectivity.
type SessionConfig struct {
	ICEServers []string
}

// DefaultSessionConfig uses a public STUN server, enough for the
// LAN-or-VPN setups this tool runs in.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ICEServers: []string{"stun:stun.l.google.com:19302"},
	}
}

// NewSession creates a peer connection. Gathered local ICE candidates
// are handed to onICE for delivery over the signaling channel.
func NewSession(cfg SessionConfig, onICE func(*webrtc.ICECandidate)) (*Session, error) {
	config := webrtc.Configuration{}
	for _, url := range cfg.ICEServers {
		config.ICEServers = append(config.ICEServers, webrtc.ICEServer{URLs: []string{url}})
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("peer connection: %w", err)
	}

	s := &Session{pc: pc, onICE: onICE}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && s.onICE != nil {
			s.onICE(c)
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("preview: peer connection %s", state)
	})

	return s, nil
}

// AddVideoTrack attaches the outgoing H264 track.
func (s *Session) AddVideoTrack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video", "camera-preview",
	)
	if err != nil {
		return fmt.Errorf("video track: %w", err)
	}
	if _, err := s.pc.AddTrack(track); err != nil {
		return fmt.Errorf("add track: %w", err)
	}

	s.track = track
	return nil
}

// Offer produces the local SDP offer, blocking until ICE gathering
// completes so the offer carries the candidates.
func (s *Session) Offer() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("local description: %w", err)
	}

	<-webrtc.GatheringCompletePromise(s.pc)
	return s.pc.LocalDescription().SDP, nil
}

// HandleAnswer applies the browser's SDP answer.
func (s *Session) HandleAnswer(sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("remote description: %w", err)
	}
	return nil
}

// AddRemoteCandidate applies an ICE candidate from the browser.
func (s *Session) AddRemoteCandidate(candidate, sdpMid string, sdpMLineIndex uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ice := webrtc.ICECandidateInit{
		Candidate:     candidate,
		SDPMid:        &sdpMid,
		SDPMLineIndex: &sdpMLineIndex,
	}
	if err := s.pc.AddICECandidate(ice); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// VideoTrack returns the outgoing track, or nil before AddVideoTrack.
func (s *Session) VideoTrack() *webrtc.TrackLocalStaticRTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Close shuts the peer connection down.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.pc != nil {
		return s.pc.Close()
	}
	return nil
}
