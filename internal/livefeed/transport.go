package livefeed

import (
	"context"
	"errors"
	"net/http"

	"nhooyr.io/websocket"
)

// Transport dials a message-oriented connection.
type Transport interface {
	Dial(ctx context.Context, header http.Header) (Conn, error)
}

// Conn carries one STOMP frame per message. Writes are serialized by
// the caller.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
}

// WSTransport dials a raw WebSocket endpoint.
type WSTransport struct {
	URL string
}

func (t WSTransport) Dial(ctx context.Context, header http.Header) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, t.URL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      header,
		Subprotocols:    []string{"v12.stomp"},
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return &wsConn{c: conn}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(reason string) error {
	err := w.c.Close(websocket.StatusNormalClosure, reason)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
