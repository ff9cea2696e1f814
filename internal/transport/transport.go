// Package transport carries framed VISCA messages to a camera and
// returns its replies. Two variants exist for the same command stream:
// VISCA over IP (UDP with an 8-byte sequenced header) and plain VISCA
// over a serial line. Everything above this package is transport
// agnostic.
package transport

import (
	"context"
	"fmt"
	"time"
)

// ResponseTimeout bounds how long a transport waits for the camera to
// answer a single message.
const ResponseTimeout = 5 * time.Second

// Transport delivers one VISCA message and returns the reply. No
// atomicity is assumed beyond a single message; callers that need
// ordering send sequentially.
type Transport interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
	Close() error
}

// Error wraps a delivery failure with the operation and peer address.
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// deadline picks the earlier of the context deadline and the bounded
// response timeout.
func deadline(ctx context.Context) time.Time {
	d := time.Now().Add(ResponseTimeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
