package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	defaultPingPeriod = 30 * time.Second
	defaultSendBuffer = 128

	// CodeSessionReplaced is sent when a newer socket for the same user
	// takes over the registration.
	CodeSessionReplaced = 4001
)

// Connection wraps a websocket and coordinates outbound writes via a
// buffered channel. Safe for concurrent use; implements presence.Channel.
type Connection struct {
	ID     string
	UserID string

	ws         *websocket.Conn
	send       chan []byte
	pingPeriod time.Duration
	once       sync.Once
	closed     chan struct{}
}

// NewConnection constructs a Connection for the given user. Zero buffer or
// ping values fall back to defaults.
func NewConnection(userID string, ws *websocket.Conn, buffer int, ping time.Duration) *Connection {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	if ping <= 0 {
		ping = defaultPingPeriod
	}
	return &Connection{
		ID:         uuid.NewString(),
		UserID:     userID,
		ws:         ws,
		send:       make(chan []byte, buffer),
		pingPeriod: ping,
		closed:     make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. If the client is slow and the buffer
// is full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	default:
		c.CloseWith(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Close terminates the connection with a normal close frame.
func (c *Connection) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith terminates the connection with the given close code and stops
// the write loop. The send channel stays open so that a Send racing the
// close enqueues into a drained buffer instead of panicking; shutdown is
// signaled only through the closed channel.
func (c *Connection) CloseWith(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
