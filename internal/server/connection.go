package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anarjbu15-star/poker-site/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection wraps one client websocket. It decodes inbound frames and
// enqueues them as room events; it never touches table state itself.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	room      *Room
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, room *Room, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, 64),
		room:   room,
		logger: logger.WithPrefix("conn").With("id", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection is finished.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Send marshals and queues an outbound frame. Delivery is fire-and-forget: a
// recipient whose buffer is full gets disconnected rather than stalling the
// room loop.
func (c *Connection) Send(v any) {
	data, err := protocol.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound frame", "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// Send channel closed mid-shutdown; nothing to deliver to.
			c.logger.Debug("Send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("Send buffer full, closing connection")
		_ = c.Close()
	}
}

// readPump decodes inbound frames and feeds them to the room. Malformed
// frames are dropped without closing the connection.
func (c *Connection) readPump() {
	defer func() {
		c.room.Enqueue(goneEvent{conn: c})
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		frame, err := protocol.ParseInbound(data)
		if err != nil {
			c.logger.Debug("Dropping malformed frame", "error", err)
			continue
		}

		switch msg := frame.(type) {
		case protocol.Join:
			c.room.Enqueue(joinEvent{conn: c, name: msg.Name})
		case protocol.Action:
			c.room.Enqueue(actionEvent{conn: c, msg: msg})
		}
	}
}

// writePump drains the send queue and keeps the peer alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
