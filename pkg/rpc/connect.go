package rpc

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/appnet-org/tcprpc/internal/logging"
)

// Dial opens a TCP connection to addr and returns an Endpoint acting as
// the client side of the session. It starts the endpoint's read loop in
// a background goroutine before returning; that loop freezes the
// registry, so the returned Endpoint serves no APIs to the peer. A client
// that serves APIs builds its Endpoint with NewEndpoint, registers them,
// and then calls Serve.
func Dial(ctx context.Context, addr string, opts Options) (*Endpoint, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	e := NewEndpoint(conn, true, opts)
	go func() {
		if err := e.Serve(); err != nil {
			logging.Debug("endpoint serve loop ended", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return e, nil
}

// Listener accepts incoming TCP connections and hands each one back as a
// server-role Endpoint (self_role == server) via the Endpoints channel.
// Every accepted Endpoint is Register'd with registerFn before its read
// loop starts, so API registration stays consistent across connections.
type Listener struct {
	ln         net.Listener
	opts       Options
	registerFn func(*Endpoint)
	Endpoints  chan *Endpoint
}

// Listen starts accepting TCP connections on addr. registerFn is called
// once per accepted connection, before that connection's Endpoint begins
// reading, to register the APIs it serves ("registration is frozen
// before the endpoint starts accepting packets").
func Listen(addr string, opts Options, registerFn func(*Endpoint)) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:         ln,
		opts:       opts,
		registerFn: registerFn,
		Endpoints:  make(chan *Endpoint),
	}
	go l.acceptLoop()
	return l, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) acceptLoop() {
	defer close(l.Endpoints)
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			logging.Debug("listener accept loop ended", zap.Error(err))
			return
		}

		e := NewEndpoint(conn, false, l.opts)
		if l.registerFn != nil {
			l.registerFn(e)
		}
		go func() {
			if err := e.Serve(); err != nil {
				logging.Debug("endpoint serve loop ended", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
		}()
		l.Endpoints <- e
	}
}
