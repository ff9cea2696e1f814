package transport

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
)

// UDP speaks VISCA over IP: each message is prefixed with an 8-byte
// header carrying the message type, payload length and a sequence
// number, all big endian.
type UDP struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
	seq  uint32
}

// DialUDP connects to a VISCA-over-IP camera, typically on port 52381.
func DialUDP(addr string) (*UDP, error) {
	conn, err := net.DialTimeout("udp", addr, ResponseTimeout)
	if err != nil {
		return nil, &Error{Op: "dial", Addr: addr, Err: err}
	}
	return &UDP{addr: addr, conn: conn}, nil
}

// Send frames the payload, transmits it and waits for one reply
// datagram. The reply is returned with its framing header stripped.
func (u *UDP) Send(ctx context.Context, payload []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "send", Addr: u.addr, Err: err}
	}

	packet := u.frame(payload)
	u.conn.SetDeadline(deadline(ctx))
	if _, err := u.conn.Write(packet); err != nil {
		return nil, &Error{Op: "send", Addr: u.addr, Err: err}
	}

	buf := make([]byte, 64)
	n, err := u.conn.Read(buf)
	if err != nil {
		return nil, &Error{Op: "recv", Addr: u.addr, Err: err}
	}
	return unframe(buf[:n]), nil
}

// frame wraps a VISCA payload in the over-IP header:
// bytes 0-1 message type (0x01 0x00 command, 0x01 0x10 inquiry),
// bytes 2-3 payload length, bytes 4-7 sequence number.
func (u *UDP) frame(payload []byte) []byte {
	header := make([]byte, 8)
	header[0] = 0x01
	if len(payload) > 1 && payload[1] == 0x09 {
		header[1] = 0x10
	}
	binary.BigEndian.PutUint16(header[2:4], uint16(len(payload)))
	binary.BigEndian.PutUint32(header[4:8], u.seq)
	u.seq++
	return append(header, payload...)
}

// unframe drops the over-IP header from a reply when present. Some
// devices answer raw VISCA even over UDP, so a packet that already
// starts with an address byte passes through untouched.
func unframe(packet []byte) []byte {
	if len(packet) > 8 && packet[0] == 0x01 {
		return packet[8:]
	}
	return packet
}

// Close closes the underlying socket.
func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn.Close()
}
