package transport

import (
	"context"
	"crypto/tls"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebSocket is a Transport over a gorilla/websocket connection,
// superseding the teacher's golang.org/x/net/websocket usage: the core
// only needs an ordered byte stream, and WebSocket delivers that as
// message frames, so received frame payloads are concatenated onto the
// endpoint's byte stream exactly as §6 describes.
type WebSocket struct {
	TLSConfig *tls.Config
	Path      string // default "/mqtt", mirroring the teacher's dial path

	conn *websocket.Conn
	cb   Callbacks
	done chan struct{}
}

func (w *WebSocket) SetCallbacks(cb Callbacks) { w.cb = cb }

func (w *WebSocket) Connect(ctx context.Context, target string) error {
	scheme := "ws"
	if w.TLSConfig != nil {
		scheme = "wss"
	}
	path := w.Path
	if path == "" {
		path = "/mqtt"
	}
	u := url.URL{Scheme: scheme, Host: target, Path: path}

	dialer := websocket.Dialer{
		TLSClientConfig: w.TLSConfig,
		Subprotocols:    []string{"mqtt"},
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	w.conn = conn
	w.done = make(chan struct{})
	go w.readLoop()
	if w.cb.OnConnected != nil {
		w.cb.OnConnected()
	}
	return nil
}

func (w *WebSocket) readLoop() {
	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			if w.cb.OnError != nil {
				w.cb.OnError(err)
			}
			if w.cb.OnClosed != nil {
				w.cb.OnClosed()
			}
			return
		}
		if w.cb.OnMessage != nil {
			w.cb.OnMessage(payload)
		}
	}
}

func (w *WebSocket) Send(b []byte) error {
	return w.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (w *WebSocket) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	err := w.conn.Close()
	if w.cb.OnClosed != nil {
		w.cb.OnClosed()
	}
	return err
}
