// Package transporttest provides an in-memory transport.Transport for
// endpoint tests, replacing a live socket the way the teacher's
// integration_test.go replaces it with an in-process server dial.
package transporttest

import (
	"context"
	"io"
	"net"

	"github.com/golang-io/mqtt-endpoint/transport"
)

// Pipe is a transport.Transport backed by net.Pipe; NewPipe also returns
// the other end so a test can read/write it directly (as if it were the
// remote broker). Send hands bytes to a writer goroutine, so it returns
// before the peer has read them.
type Pipe struct {
	conn net.Conn
	cb   transport.Callbacks
	done chan struct{}
	out  chan []byte
}

// NewPipe returns a connected client-side Pipe and the raw net.Conn
// representing the simulated peer.
func NewPipe() (*Pipe, net.Conn) {
	client, peer := net.Pipe()
	p := &Pipe{conn: client, out: make(chan []byte, 256)}
	go p.writeLoop()
	return p, peer
}

func (p *Pipe) writeLoop() {
	for b := range p.out {
		if _, err := p.conn.Write(b); err != nil {
			return
		}
	}
}

func (p *Pipe) SetCallbacks(cb transport.Callbacks) { p.cb = cb }

func (p *Pipe) Connect(ctx context.Context, target string) error {
	p.done = make(chan struct{})
	go p.readLoop()
	if p.cb.OnConnected != nil {
		p.cb.OnConnected()
	}
	return nil
}

func (p *Pipe) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 && p.cb.OnMessage != nil {
			msg := make([]byte, n)
			copy(msg, buf[:n])
			p.cb.OnMessage(msg)
		}
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			if err != io.EOF && p.cb.OnError != nil {
				p.cb.OnError(err)
			}
			if p.cb.OnClosed != nil {
				p.cb.OnClosed()
			}
			return
		}
	}
}

func (p *Pipe) Send(b []byte) error {
	msg := make([]byte, len(b))
	copy(msg, b)
	p.out <- msg
	return nil
}

func (p *Pipe) Close() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	err := p.conn.Close()
	if p.cb.OnClosed != nil {
		p.cb.OnClosed()
	}
	return err
}
