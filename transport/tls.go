package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// TLS is a Transport over a crypto/tls.Conn, grounded on the teacher's
// tls.DialWithDialer dial path for "tls"/"mqtts" scheme targets.
type TLS struct {
	Config *tls.Config
	Dialer *net.Dialer

	tcp TCP
}

func (t *TLS) SetCallbacks(cb Callbacks) { t.tcp.SetCallbacks(cb) }

func (t *TLS) Connect(ctx context.Context, target string) error {
	dialer := t.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := tls.DialWithDialer(dialer, "tcp", target, t.Config)
	if err != nil {
		return err
	}
	t.tcp.conn = conn
	t.tcp.done = make(chan struct{})
	go t.tcp.readLoop()
	if t.tcp.cb.OnConnected != nil {
		t.tcp.cb.OnConnected()
	}
	return nil
}

func (t *TLS) Send(b []byte) error { return t.tcp.Send(b) }
func (t *TLS) Close() error        { return t.tcp.Close() }
