package transport

import (
	"context"
	"net"
)

// TCP is a Transport over a plain net.Conn, grounded on the teacher's
// net.Dialer.DialContext dial path for "tcp"/"mqtt" scheme targets.
type TCP struct {
	Dialer *net.Dialer

	conn net.Conn
	cb   Callbacks
	done chan struct{}
}

func (t *TCP) SetCallbacks(cb Callbacks) { t.cb = cb }

func (t *TCP) Connect(ctx context.Context, target string) error {
	dialer := t.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return err
	}
	t.conn = conn
	t.done = make(chan struct{})
	go t.readLoop()
	if t.cb.OnConnected != nil {
		t.cb.OnConnected()
	}
	return nil
}

func (t *TCP) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 && t.cb.OnMessage != nil {
			msg := make([]byte, n)
			copy(msg, buf[:n])
			t.cb.OnMessage(msg)
		}
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if t.cb.OnError != nil {
				t.cb.OnError(err)
			}
			if t.cb.OnClosed != nil {
				t.cb.OnClosed()
			}
			return
		}
	}
}

func (t *TCP) Send(b []byte) error {
	_, err := t.conn.Write(b)
	return err
}

func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	err := t.conn.Close()
	if t.cb.OnClosed != nil {
		t.cb.OnClosed()
	}
	return err
}
