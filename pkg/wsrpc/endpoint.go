package wsrpc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/appnet-org/tcprpc/internal/logging"
	"github.com/appnet-org/tcprpc/internal/pending"
	"github.com/appnet-org/tcprpc/internal/registry"
	"github.com/appnet-org/tcprpc/internal/wire"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

type state int32

const (
	stateConnected state = iota
	stateDisconnected
)

// ExceptionHook mirrors pkg/rpc.ExceptionHook for the websocket variant.
type ExceptionHook func(api string, packetID uint32, err error) (handled bool)

// Endpoint is one peer of a WebSocket-JSON RPC session, symmetric in the
// same sense as pkg/rpc.Endpoint: either side may register APIs and
// invoke the other's.
type Endpoint struct {
	conn     *websocket.Conn
	isClient bool
	opts     Options

	registry *registry.Registry
	pending  *pending.Table
	ids      *wire.IDSource

	writeMu sync.Mutex
	state   atomic.Int32

	onException ExceptionHook
	closeOnce   sync.Once
	stopPing    chan struct{}
	wg          sync.WaitGroup
}

// NewEndpoint wraps an already-established *websocket.Conn (the result
// of websocket.DefaultDialer.Dial on the client side, or
// websocket.Upgrader.Upgrade on the server side).
func NewEndpoint(conn *websocket.Conn, isClient bool, opts Options) *Endpoint {
	opts = opts.withDefaults()
	e := &Endpoint{
		conn:     conn,
		isClient: isClient,
		opts:     opts,
		registry: registry.New(),
		pending:  pending.New(opts.Serializer, opts.Timeout/10),
		ids:      wire.NewIDSource(),
		stopPing: make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return e
}

// Register adds an API to this endpoint's registry. See
// pkg/rpc.Endpoint.Register for the handler shape.
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

// Serve freezes the registry, starts the ping keepalive, and reads
// envelopes until the connection closes.
func (e *Endpoint) Serve() error {
	e.registry.Freeze()

	e.wg.Add(1)
	go e.pingLoop()

	defer e.disconnect()
	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			return err
		}
		e.onMessage(data)
	}
}

func (e *Endpoint) pingLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopPing:
			return
		case <-ticker.C:
			e.writeMu.Lock()
			err := e.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			e.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (e *Endpoint) onMessage(data []byte) {
	var env envelope
	if err := e.opts.Serializer.Decode(data, &env); err != nil {
		logging.Warn("dropping malformed websocket envelope", zap.Error(err))
		return
	}
	e.route(env)
}

func (e *Endpoint) route(env envelope) {
	if env.IsFromClient == e.isClient {
		if env.IsException {
			var message string
			if err := e.opts.Serializer.Decode(env.Body, &message); err != nil {
				message = string(env.Body)
			}
			e.pending.CompleteRemoteError(env.PacketID, message)
		} else {
			e.pending.CompleteValue(env.PacketID, env.Body)
		}
		return
	}
	go e.handleRequest(env)
}

func (e *Endpoint) disconnect() {
	e.closeOnce.Do(func() {
		e.state.Store(int32(stateDisconnected))
		close(e.stopPing)
		e.pending.TakeAll()
		e.pending.Close()
	})
}

// Close disconnects and closes the underlying websocket connection.
func (e *Endpoint) Close() error {
	e.disconnect()
	e.wg.Wait()
	return e.conn.Close()
}

func (e *Endpoint) sendEnvelope(env envelope) error {
	data, err := e.opts.Serializer.Encode(env)
	if err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return e.conn.WriteMessage(websocket.TextMessage, data)
}

func (e *Endpoint) nextDeadline() time.Time {
	return time.Now().Add(e.opts.Timeout)
}
