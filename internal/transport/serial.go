package transport

import (
	"context"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial speaks plain VISCA over an RS-232/RS-422 line. No extra
// framing: messages and replies are delimited by the 0xFF terminator.
type Serial struct {
	device string

	mu   sync.Mutex
	port serial.Port
}

// OpenSerial opens the given serial device at the VISCA standard
// 9600 8N1.
func OpenSerial(device string) (*Serial, error) {
	mode := serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, &mode)
	if err != nil {
		return nil, &Error{Op: "open", Addr: device, Err: err}
	}
	return &Serial{device: device, port: port}, nil
}

// Send writes the message and reads the reply up to and including its
// terminator.
func (s *Serial) Send(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "send", Addr: s.device, Err: err}
	}

	if _, err := s.port.Write(payload); err != nil {
		return nil, &Error{Op: "send", Addr: s.device, Err: err}
	}

	reply, err := s.readReply(ctx)
	if err != nil {
		return nil, &Error{Op: "recv", Addr: s.device, Err: err}
	}
	return reply, nil
}

func (s *Serial) readReply(ctx context.Context) ([]byte, error) {
	limit := deadline(ctx)
	s.port.SetReadTimeout(time.Until(limit))

	buf := []byte{0}
	out := make([]byte, 0, 16)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Read timeout expired with no terminator.
			return nil, context.DeadlineExceeded
		}

		out = append(out, buf[0])
		if buf[0] == 0xFF {
			return out, nil
		}
		if !time.Now().Before(limit) {
			return nil, context.DeadlineExceeded
		}
	}
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
