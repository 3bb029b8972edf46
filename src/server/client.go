package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	id        string
	server    *Server
	conn      *websocket.Conn
	send      chan interface{}
	scheduler *PushScheduler

	mu            sync.Mutex
	closed        bool
	subscriptions map[string]struct{}

	teardownOnce sync.Once
}

// -----------------------------------------------------------------------------

func newClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:            uuid.NewString(),
		server:        s,
		conn:          conn,
		send:          make(chan interface{}, sendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------
// IConnection
// -----------------------------------------------------------------------------

func (c *Client) ID() string {
	return c.id
}

// -----------------------------------------------------------------------------

func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// -----------------------------------------------------------------------------

// Send queues payload for the write pump without blocking.
// A saturated client is disconnected so it cannot stall the scheduler.
func (c *Client) Send(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.server.metrics.sendFailures.Inc()
		return ErrConnectionClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.server.metrics.sendFailures.Inc()
		c.server.Logger.Warning("Client %s too slow, disconnecting", c.id)
		go c.conn.Close()
		return ErrSendBufferFull
	}
}

// -----------------------------------------------------------------------------

// Close drops the transport; the read pump then runs the teardown
func (c *Client) Close() error {
	return c.conn.Close()
}

// -----------------------------------------------------------------------------

// markClosed closes the send queue exactly once
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	c.subscriptions[channel] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.subscriptions, channel)
	c.mu.Unlock()
}

// Subscriptions returns the subscribed channel names, sorted
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	out := make([]string, 0, len(c.subscriptions))
	for ch := range c.subscriptions {
		out = append(out, ch)
	}
	c.mu.Unlock()

	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.server.teardown(c)
		c.conn.Close()
		c.server.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.server.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Teardown closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Write JSON message
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.Logger.Info("Write error on %s: %v", c.id, err)
				return
			}
			c.server.metrics.messagesSent.Inc()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
