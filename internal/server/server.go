// Package server exposes the animator over a web page: capture the
// start/end positions, prepare, and run, with a live WebRTC preview of
// the camera while framing.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pwebrtc "github.com/pion/webrtc/v3"

	"cam-animator/internal/motion"
	"cam-animator/internal/preview"
	"cam-animator/internal/protocol"
	"cam-animator/internal/store"
	"cam-animator/internal/transport"
	"cam-animator/internal/visca"
)

// commandTimeout bounds a single camera operation triggered from the
// web surface.
const commandTimeout = 10 * time.Second

// Config for the server
type Config struct {
	ListenAddr    string
	DeviceAddress string
	Transport     string // "udp" or "serial"
	PreviewURL    string // optional RTSP URL for the framing preview
	PositionsDir  string
}

// Server owns one camera, its saved positions, and the connected
// browser clients. Animation runs are serialized: one at a time, and a
// new run is refused while one is in flight.
type Server struct {
	cfg       Config
	camera    *visca.Controller
	positions *store.Store
	stream    *preview.Stream
	clients   map[*Client]bool
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader
	staticFS  fs.FS

	runMu     sync.Mutex
	animating bool
	cancelRun context.CancelFunc
}

// Client is one connected WebSocket peer
type Client struct {
	conn    *websocket.Conn
	server  *Server
	session *preview.Session
	send    chan []byte
	rtpChan chan []byte
	stopRTP chan struct{}
	mu      sync.Mutex
	closed  bool
}

// New creates a server instance
func New(cfg Config, staticFiles embed.FS) (*Server, error) {
	webFS, err := fs.Sub(staticFiles, "web")
	if err != nil {
		return nil, fmt.Errorf("embedded web files: %w", err)
	}
	if cfg.DeviceAddress == "" {
		return nil, fmt.Errorf("camera device address is required")
	}

	return &Server{
		cfg:       cfg,
		positions: store.New(cfg.PositionsDir),
		clients:   make(map[*Client]bool),
		staticFS:  webFS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin
			},
		},
	}, nil
}

// Start connects the camera and preview and serves HTTP until the
// listener fails or the process is stopped.
func (s *Server) Start() error {
	t, err := dialTransport(s.cfg.Transport, s.cfg.DeviceAddress)
	if err != nil {
		return fmt.Errorf("camera %s: %w", s.cfg.DeviceAddress, err)
	}
	s.camera = visca.NewController(t)
	log.Printf("camera: connected to %s (%s)", s.cfg.DeviceAddress, s.cfg.Transport)

	if s.cfg.PreviewURL != "" {
		stream, err := preview.NewStream(s.cfg.PreviewURL)
		if err != nil {
			log.Printf("Warning: preview disabled: %v", err)
		} else if err := stream.Start(); err != nil {
			log.Printf("Warning: preview connect failed: %v", err)
		} else {
			s.stream = stream
			go s.fanOutRTP()
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/", http.FileServer(http.FS(s.staticFS)))

	log.Printf("server: listening on %s", s.cfg.ListenAddr)
	return http.ListenAndServe(s.cfg.ListenAddr, mux)
}

func dialTransport(kind, addr string) (transport.Transport, error) {
	switch kind {
	case "", "udp":
		return transport.DialUDP(addr)
	case "serial":
		return transport.OpenSerial(addr)
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
}

// fanOutRTP distributes preview packets to every connected client.
func (s *Server) fanOutRTP() {
	for packet := range s.stream.Packets() {
		s.clientsMu.RLock()
		for client := range s.clients {
			select {
			case client.rtpChan <- packet:
			default:
				// Client buffer full, drop for this client.
			}
		}
		s.clientsMu.RUnlock()
	}
}

// Stop cancels any running animation and closes everything down.
func (s *Server) Stop() {
	s.runMu.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.runMu.Unlock()

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	if s.stream != nil {
		s.stream.Close()
	}
	if s.camera != nil {
		s.camera.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	client := &Client{
		conn:    conn,
		server:  s,
		send:    make(chan []byte, 256),
		rtpChan: make(chan []byte, 500),
		stopRTP: make(chan struct{}),
	}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	go client.writePump()
	go client.readPump()

	client.sendMessage(protocol.TypeStatus, s.status())

	if s.stream != nil {
		if err := client.initPreview(); err != nil {
			log.Printf("preview session: %v", err)
		}
	}
}

// status snapshots what the UI needs to render its controls.
func (s *Server) status() protocol.StatusPayload {
	s.runMu.Lock()
	animating := s.animating
	s.runMu.Unlock()

	hasStart := s.hasPosition("start")
	hasEnd := s.hasPosition("end")

	return protocol.StatusPayload{
		CameraConnected: s.camera != nil,
		PreviewActive:   s.stream != nil,
		DeviceAddress:   s.cfg.DeviceAddress,
		Transport:       s.cfg.Transport,
		HasStart:        hasStart,
		HasEnd:          hasEnd,
		Animating:       animating,
	}
}

func (s *Server) hasPosition(name string) bool {
	_, err := s.positions.Load(s.cfg.DeviceAddress, name)
	return err == nil
}

// broadcast sends a message to every connected client.
func (s *Server) broadcast(msgType string, payload any) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		client.sendMessage(msgType, payload)
	}
}

func (c *Client) initPreview() error {
	session, err := preview.NewSession(preview.DefaultSessionConfig(), func(candidate *pwebrtc.ICECandidate) {
		init := candidate.ToJSON()
		c.sendMessage(protocol.TypeICECandidate, protocol.ICECandidatePayload{
			Candidate:     init.Candidate,
			SDPMid:        *init.SDPMid,
			SDPMLineIndex: *init.SDPMLineIndex,
		})
	})
	if err != nil {
		return err
	}
	c.session = session

	if err := session.AddVideoTrack(); err != nil {
		return err
	}

	offer, err := session.Offer()
	if err != nil {
		return err
	}
	c.sendMessage(protocol.TypeOffer, protocol.SDPPayload{SDP: offer})

	go c.forwardRTP()
	return nil
}

func (c *Client) forwardRTP() {
	track := c.session.VideoTrack()
	if track == nil {
		return
	}
	for {
		select {
		case <-c.stopRTP:
			return
		case packet, ok := <-c.rtpChan:
			if !ok {
				return
			}
			if _, err := track.Write(packet); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(msgType string, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("build message: %v", err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("client send buffer full, dropping message")
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: message})
}

func (c *Client) readPump() {
	defer func() {
		c.server.clientsMu.Lock()
		delete(c.server.clients, c)
		c.server.clientsMu.Unlock()
		c.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: %v", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(protocol.ErrInvalidMessage, "failed to parse message")
		return
	}

	switch msg.Type {
	case protocol.TypePing:
		var payload protocol.PingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.sendMessage(protocol.TypePong, protocol.PongPayload{
			ClientTimestamp: payload.Timestamp,
			ServerTimestamp: time.Now().UnixMilli(),
		})

	case protocol.TypeAnswer:
		var payload protocol.SDPPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		if c.session != nil {
			if err := c.session.HandleAnswer(payload.SDP); err != nil {
				log.Printf("preview answer: %v", err)
			}
		}

	case protocol.TypeICECandidate:
		var payload protocol.ICECandidatePayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		if c.session != nil {
			if err := c.session.AddRemoteCandidate(payload.Candidate, payload.SDPMid, payload.SDPMLineIndex); err != nil {
				log.Printf("preview candidate: %v", err)
			}
		}

	case protocol.TypeCapture:
		var payload protocol.CapturePayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.handleCapture(payload.Slot)

	case protocol.TypePrepare:
		c.handlePrepare()

	case protocol.TypeAnimate:
		var payload protocol.AnimatePayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.handleAnimate(payload.Seconds)

	case protocol.TypeStop:
		c.server.runMu.Lock()
		if c.server.cancelRun != nil {
			c.server.cancelRun()
		}
		c.server.runMu.Unlock()

	default:
		log.Printf("unknown message type: %s", msg.Type)
	}
}

// handleCapture reads the camera's current position and stores it as
// the named animation endpoint.
func (c *Client) handleCapture(slot string) {
	if slot != "start" && slot != "end" {
		c.sendError(protocol.ErrInvalidMessage, fmt.Sprintf("unknown capture slot %q", slot))
		return
	}

	s := c.server
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	pos, err := s.camera.QueryPosition(ctx)
	if err != nil {
		c.sendError(protocol.ErrCamera, fmt.Sprintf("query position: %v", err))
		return
	}
	if err := s.positions.Save(s.cfg.DeviceAddress, slot, pos); err != nil {
		c.sendError(protocol.ErrCamera, fmt.Sprintf("save %s: %v", slot, err))
		return
	}

	log.Printf("captured %s position for %s: %s", slot, s.cfg.DeviceAddress, pos)
	s.broadcast(protocol.TypeStatus, s.status())
}

// handlePrepare moves the camera to the saved start position at full
// speed, ready for a run.
func (c *Client) handlePrepare() {
	s := c.server
	start, err := s.positions.Load(s.cfg.DeviceAddress, "start")
	if err != nil {
		c.sendError(protocol.ErrNoPosition, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.camera.MoveTo(ctx, start, visca.SpeedMax, visca.SpeedMax); err != nil {
		c.sendError(protocol.ErrCamera, fmt.Sprintf("prepare: %v", err))
		return
	}
	s.broadcast(protocol.TypeStatus, s.status())
}

// handleAnimate plans and launches a run. Only one run at a time: a
// second animate while one is in flight gets an error instead of a
// queued or interleaved run.
func (c *Client) handleAnimate(seconds float64) {
	s := c.server

	start, err := s.positions.Load(s.cfg.DeviceAddress, "start")
	if err != nil {
		c.sendError(protocol.ErrNoPosition, err.Error())
		return
	}
	end, err := s.positions.Load(s.cfg.DeviceAddress, "end")
	if err != nil {
		c.sendError(protocol.ErrNoPosition, err.Error())
		return
	}

	plan, err := motion.NewPlan(start, end, seconds, motion.StepsPerSecond)
	if err != nil {
		if errors.Is(err, motion.ErrInvalidParameter) {
			c.sendError(protocol.ErrInvalidMessage, err.Error())
		} else {
			c.sendError(protocol.ErrCamera, err.Error())
		}
		return
	}

	s.runMu.Lock()
	if s.animating {
		s.runMu.Unlock()
		c.sendError(protocol.ErrBusy, "an animation is already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.animating = true
	s.cancelRun = cancel
	s.runMu.Unlock()

	driver := motion.NewDriver(s.camera)
	driver.Progress = func(step, total int) {
		s.broadcast(protocol.TypeProgress, protocol.ProgressPayload{Step: step, Total: total})
	}

	s.broadcast(protocol.TypeStatus, s.status())

	go func() {
		defer func() {
			cancel()
			s.runMu.Lock()
			s.animating = false
			s.cancelRun = nil
			s.runMu.Unlock()
			s.broadcast(protocol.TypeStatus, s.status())
		}()

		if err := driver.Run(ctx, plan); err != nil {
			log.Printf("animation stopped: %v", err)
		}
	}()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.stopRTP)
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	close(c.send)
}
