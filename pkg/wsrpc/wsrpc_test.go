package wsrpc

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

func newTestServer(t *testing.T, register func(*Endpoint)) (wsURL string, handler *Handler) {
	t.Helper()
	handler = NewHandler(Options{Timeout: 2 * time.Second}, register)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	go func() {
		for e := range handler.Endpoints {
			_ = e
		}
	}()

	return "ws" + strings.TrimPrefix(srv.URL, "http"), handler
}

func TestWebSocketInvokeHappyPath(t *testing.T) {
	url, _ := newTestServer(t, func(e *Endpoint) {
		e.Register("echo", func(s string) (string, error) {
			return "echo:" + s, nil
		})
	})

	client, err := Dial(context.Background(), url, Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := Invoke[string](ctx, client, "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)
}

func TestWebSocketInvokeUnknownAPI(t *testing.T) {
	url, _ := newTestServer(t, func(e *Endpoint) {
		e.Register("known", func() error { return nil })
	})

	client, err := Dial(context.Background(), url, Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = Invoke[string](ctx, client, "missing")
	var remoteErr *rpcerr.RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestWebSocketInvokeOneWay(t *testing.T) {
	received := make(chan string, 1)
	url, _ := newTestServer(t, func(e *Endpoint) {
		e.Register("notify", func(msg string) {
			received <- msg
		})
	})

	client, err := Dial(context.Background(), url, Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, InvokeOneWay(ctx, client, "notify", "hello"))

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}
