package channel

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Transport is one established connection
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a transport to url
type Dialer func(ctx context.Context, url string) (Transport, error)

// Timer is a pending reconnect
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

// -----------------------------------------------------------------------------

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// -----------------------------------------------------------------------------
// WebSocket transport
// -----------------------------------------------------------------------------

type wsTransport struct {
	conn *websocket.Conn
}

// WebSocketDialer dials with the gorilla default dialer
func WebSocketDialer(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// -----------------------------------------------------------------------------

// isCleanClose reports a close handshake rather than a transport failure
func isCleanClose(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
