package wsrpc

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/appnet-org/tcprpc/internal/logging"
)

// Dial opens a websocket connection to url (ws:// or wss://) and returns
// an Endpoint acting as the client side of the session. It starts the
// endpoint's read loop in a background goroutine before returning.
func Dial(ctx context.Context, url string, opts Options) (*Endpoint, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	e := NewEndpoint(conn, true, opts)
	go func() {
		if err := e.Serve(); err != nil {
			logging.Debug("websocket endpoint serve loop ended", zap.String("url", url), zap.Error(err))
		}
	}()
	return e, nil
}

// Handler upgrades incoming HTTP requests to websocket connections and
// hands each one back as a server-role Endpoint via the Endpoints
// channel, mirroring pkg/rpc.Listener for the TCP transport.
type Handler struct {
	Upgrader  websocket.Upgrader
	opts      Options
	register  func(*Endpoint)
	Endpoints chan *Endpoint
}

// NewHandler returns an http.Handler that upgrades every request to a
// websocket RPC session. register is called once per accepted
// connection, before that connection's Endpoint begins reading, to
// register the APIs it serves.
func NewHandler(opts Options, register func(*Endpoint)) *Handler {
	return &Handler{
		opts:      opts,
		register:  register,
		Endpoints: make(chan *Endpoint),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	e := NewEndpoint(conn, false, h.opts)
	if h.register != nil {
		h.register(e)
	}
	go func() {
		if err := e.Serve(); err != nil {
			logging.Debug("websocket endpoint serve loop ended", zap.Error(err))
		}
	}()
	h.Endpoints <- e
}
