// Package gateway implements the per-connection subscriber protocol: the
// hello/heartbeat handshake, subscription management, and teardown.
package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport surface a session drives. Send doubles as the
// presence.Sender used by the broadcast engine, so it must be safe for
// concurrent use with the session's own writes.
type Conn interface {
	// Read blocks for the next frame or until the deadline passes.
	Read(deadline time.Time) ([]byte, error)
	Send(data []byte) error
	Close(code int) error
	RemoteAddr() string
}

type wsConn struct {
	conn *websocket.Conn

	// mu serializes writes between the session loop and broadcast workers.
	mu     sync.Mutex
	closed bool
}

// NewConn wraps a websocket connection for use by a Session.
func NewConn(ws *websocket.Conn) Conn {
	return &wsConn{conn: ws}
}

func (c *wsConn) Read(deadline time.Time) ([]byte, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
