package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Conn exchanges messages over a net.Conn.
// A positive idle timeout bounds how long Receive waits for the next frame.
type Conn struct {
	conn        net.Conn
	idleTimeout time.Duration
	closeOnce   sync.Once
	closeErr    error
}

// NewConn wraps c. An idleTimeout of zero disables the read deadline.
func NewConn(c net.Conn, idleTimeout time.Duration) *Conn {
	return &Conn{
		conn:        c,
		idleTimeout: idleTimeout,
	}
}

// Dial connects to a coordinator at addr.
func Dial(addr string, timeout, idleTimeout time.Duration) (*Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return NewConn(c, idleTimeout), nil
}

// Send writes one message.
func (c *Conn) Send(msg Message) error {
	return Send(c.conn, msg)
}

// Receive reads one message, waiting at most the idle timeout.
// A connection already closed by either side yields ErrConnClosed.
func (c *Conn) Receive() (Message, error) {
	if c.idleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil, fmt.Errorf("%w: %w", ErrConnClosed, err)
			}
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}
	return Receive(c.conn)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
