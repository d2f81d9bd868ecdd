// Package rpc implements the session endpoint (C8): the public façade
// exposing InvokeOneWay, Invoke, and connection lifecycle hooks over a
// single TCP connection that is simultaneously a client and a server for
// the peer's registered APIs ("either peer may both serve named
// procedures and invoke the other peer's APIs").
package rpc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appnet-org/tcprpc/internal/logging"
	"github.com/appnet-org/tcprpc/internal/pending"
	"github.com/appnet-org/tcprpc/internal/registry"
	"github.com/appnet-org/tcprpc/internal/wire"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// state tracks whether the endpoint still considers its connection live.
type state int32

const (
	stateConnected state = iota
	stateDisconnected
)

// ExceptionHook is invoked for every ApiNotFoundError and
// ApiExecutionError this endpoint raises while handling an incoming
// request. It returns whether the error was handled; when it is not
// (including when no hook is set), the error is logged and the reader
// goroutine continues — a misbehaving handler must never crash the
// connection's reader.
type ExceptionHook func(pkt wire.Packet, err error) (handled bool)

// Endpoint is one peer of the RPC system. Construct it with
// NewEndpoint, Register every API before calling Serve, then drive bytes
// off the connection with Serve.
type Endpoint struct {
	conn     net.Conn
	isClient bool
	opts     Options

	registry *registry.Registry
	pending  *pending.Table
	ids      *wire.IDSource
	recvBuf  *wire.Buffer

	writeMu sync.Mutex
	state   atomic.Int32

	handlers *errgroup.Group

	onException ExceptionHook

	closeOnce sync.Once
}

// NewEndpoint wraps conn as one side of an RPC session. isClient is the
// value every request this endpoint originates will carry as
// is_from_client, and the value an incoming packet must match to be
// routed as a reply rather than a request.
func NewEndpoint(conn net.Conn, isClient bool, opts Options) *Endpoint {
	opts = opts.withDefaults()
	sweepInterval := opts.Timeout / 10
	e := &Endpoint{
		conn:     conn,
		isClient: isClient,
		opts:     opts,
		registry: registry.New(),
		pending:  pending.New(opts.Serializer, sweepInterval),
		ids:      wire.NewIDSource(),
		recvBuf:  wire.NewBuffer(),
		handlers: &errgroup.Group{},
	}
	e.handlers.SetLimit(64)
	return e
}

// Register adds an API to this endpoint's registry (C5). handler must be
// a func; its parameter types are decoded from each request body in
// order, and its return type (if any, beyond a trailing error) becomes
// the API's declared return type. Register must be called before Serve —
// registration is frozen the moment Serve starts accepting packets.
func (e *Endpoint) Register(name string, handler any) {
	e.registry.Register(name, handler)
}

// OnException installs the hook invoked for every request-handling
// failure this endpoint raises.
func (e *Endpoint) OnException(hook ExceptionHook) {
	e.onException = hook
}

// Connected reports whether the endpoint still considers its connection
// live.
func (e *Endpoint) Connected() bool {
	return state(e.state.Load()) == stateConnected
}

// Serve freezes the registry and drives the read loop until the
// connection is closed or a ProtocolError occurs, at which point it
// disconnects and returns. Run it in its own goroutine.
func (e *Endpoint) Serve() error {
	e.registry.Freeze()

	buf := make([]byte, 64*1024)
	for {
		n, err := e.conn.Read(buf)
		if n > 0 {
			if derr := e.onReceive(buf[:n]); derr != nil {
				e.disconnect()
				return derr
			}
		}
		if err != nil {
			e.disconnect()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// onReceive delegates to the dispatcher (C7): it appends newly received
// bytes to the shared decode buffer and repeatedly decodes and routes
// whole frames.
func (e *Endpoint) onReceive(data []byte) error {
	e.recvBuf.Append(data)

	for {
		pkt, ok, err := wire.Decode(e.recvBuf, e.opts.MaxFrameBytes)
		if err != nil {
			logging.Error("fatal protocol error, closing connection", zap.Error(err))
			return err
		}
		if !ok {
			return nil
		}
		e.route(pkt)
	}
}

// route applies the self-originated/peer-originated routing rule: a
// packet whose is_from_client flag matches this endpoint's own role is a
// reply to a call this endpoint made; otherwise it is an incoming
// request.
func (e *Endpoint) route(pkt wire.Packet) {
	if pkt.IsFromClient == e.isClient {
		// A reply or remote exception to a call this endpoint originated.
		if pkt.IsException {
			e.pending.CompleteRemoteError(pkt.PacketID, string(pkt.Body))
		} else {
			e.pending.CompleteValue(pkt.PacketID, pkt.Body)
		}
		return
	}

	// An incoming request from the peer. Handler execution may run in
	// parallel with other requests and with unrelated traffic — dispatch
	// onto the bounded worker pool so the reader goroutine does not block
	// on a slow handler while the pool has a free slot.
	if !e.handlers.TryGo(func() error {
		e.handleRequest(pkt)
		return nil
	}) {
		// Pool briefly saturated: run inline rather than drop the request.
		e.handleRequest(pkt)
	}
}

// disconnect transitions to Disconnected exactly once, resolving every
// pending call with ShutdownError.
func (e *Endpoint) disconnect() {
	e.closeOnce.Do(func() {
		e.state.Store(int32(stateDisconnected))
		ids := e.pending.TakeAll()
		if len(ids) > 0 {
			logging.Info("connection closed, cancelled pending calls", zap.Int("count", len(ids)))
		}
		e.pending.Close()
	})
}

// Close shuts down the endpoint: it disconnects (cancelling pending
// calls), waits for in-flight handlers to finish, and closes the
// underlying connection.
func (e *Endpoint) Close() error {
	e.disconnect()
	_ = e.handlers.Wait()
	return e.conn.Close()
}

func (e *Endpoint) send(pkt wire.Packet) error {
	if len(pkt.APIName) > wire.MaxAPINameBytes {
		return fmt.Errorf("rpc: api name %q exceeds %d bytes", pkt.APIName, wire.MaxAPINameBytes)
	}
	data := wire.Encode(pkt)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.conn.Write(data)
	return err
}

func (e *Endpoint) nextDeadline() time.Time {
	return time.Now().Add(e.opts.Timeout)
}
