// Package preview gives the operator a live view of the camera while
// framing the start and end positions: an RTSP pull from the camera,
// fanned out as raw RTP to per-client WebRTC sessions.
package preview

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"
)

// Stream pulls the camera's RTSP feed and exposes the video RTP
// packets on a channel. It reconnects on its own with backoff, so a
// camera reboot mid-session heals without operator action.
type Stream struct {
	url     string
	packets chan []byte
	stopCh  chan struct{}

	mu      sync.Mutex
	client  *gortsplib.Client
	stopped bool
}

// NewStream validates the URL and prepares a stream. Nothing is
// connected until Start.
func NewStream(rtspURL string) (*Stream, error) {
	if _, err := base.ParseURL(rtspURL); err != nil {
		return nil, fmt.Errorf("preview url: %w", err)
	}
	return &Stream{
		url:     rtspURL,
		packets: make(chan []byte, 500),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start connects and begins delivering packets.
func (s *Stream) Start() error {
	return s.connect()
}

// Packets is the stream of serialized video RTP packets. Slow readers
// lose packets rather than stall the puller.
func (s *Stream) Packets() <-chan []byte {
	return s.packets
}

func (s *Stream) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := &gortsplib.Client{
		Transport: func() *gortsplib.Transport {
			t := gortsplib.TransportTCP
			return &t
		}(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		OnDecodeError: func(err error) {
			log.Printf("preview: decode error: %v", err)
		},
	}

	u, err := base.ParseURL(s.url)
	if err != nil {
		return err
	}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return err
	}

	desc, _, err := client.Describe(u)
	if err != nil {
		client.Close()
		return err
	}

	videoMedia, err := pickVideoMedia(desc)
	if err != nil {
		client.Close()
		return err
	}

	if _, err := client.Setup(desc.BaseURL, videoMedia, 0, 0); err != nil {
		client.Close()
		return err
	}

	client.OnPacketRTPAny(func(media *description.Media, _ format.Format, pkt *rtp.Packet) {
		buf, err := pkt.Marshal()
		if err != nil {
			return
		}
		packet := make([]byte, len(buf))
		copy(packet, buf)

		select {
		case s.packets <- packet:
		case <-s.stopCh:
		default:
			// Reader behind, drop.
		}
	})

	if _, err := client.Play(nil); err != nil {
		client.Close()
		return err
	}

	s.client = client
	log.Printf("preview: connected to %s", s.url)

	go s.reconnectLoop()
	return nil
}

// pickVideoMedia prefers an H264/H265 track and falls back to the
// first video media found.
func pickVideoMedia(desc *description.Session) (*description.Media, error) {
	for _, media := range desc.Medias {
		for _, f := range media.Formats {
			switch f.(type) {
			case *format.H264, *format.H265:
				return media, nil
			}
		}
	}
	for _, media := range desc.Medias {
		if media.Type == description.MediaTypeVideo && len(media.Formats) > 0 {
			return media, nil
		}
	}
	return nil, fmt.Errorf("no video media in RTSP description")
}

// reconnectLoop waits for the current client to die and dials again
// with exponential backoff, capped at 30s.
func (s *Stream) reconnectLoop() {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return
	}

	err := client.Wait()

	select {
	case <-s.stopCh:
		return
	default:
	}
	if err != nil {
		log.Printf("preview: connection lost: %v", err)
	}

	for attempt := 1; ; attempt++ {
		delay := min(time.Duration(1<<uint(attempt-1))*time.Second, 30*time.Second)
		log.Printf("preview: reconnect attempt %d in %v", attempt, delay)

		select {
		case <-s.stopCh:
			return
		case <-time.After(delay):
		}

		if err := s.connect(); err != nil {
			log.Printf("preview: reconnect failed: %v", err)
			continue
		}
		log.Printf("preview: reconnected")
		return
	}
}

// Close tears the stream down and closes the packet channel.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	client := s.client
	s.mu.Unlock()

	close(s.stopCh)
	close(s.packets)

	if client != nil {
		client.Close()
	}
	return nil
}
