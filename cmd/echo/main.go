// Command echo is a minimal demonstration server and client for the RPC
// runtime, wired the way examples/echo wires the original Fast-based
// echo service: one registered API, one call.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/appnet-org/tcprpc/internal/logging"
	"github.com/appnet-org/tcprpc/pkg/rpc"
	"go.uber.org/zap"
)

func main() {
	mode := flag.String("mode", "server", "server or client")
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on or dial")
	message := flag.String("message", "hello", "message to send (client mode)")
	flag.Parse()

	switch *mode {
	case "server":
		runServer(*addr)
	case "client":
		runClient(*addr, *message)
	default:
		log.Fatalf("unknown -mode %q: want server or client", *mode)
	}
}

func runServer(addr string) {
	ln, err := rpc.Listen(addr, rpc.Options{}, func(e *rpc.Endpoint) {
		e.Register("Echo", func(message string) (string, error) {
			return "Echo: " + message, nil
		})
	})
	if err != nil {
		log.Fatalf("listen on %s: %v", addr, err)
	}
	logging.Info("echo server listening", zap.String("addr", ln.Addr().String()))

	for range ln.Endpoints {
		// Endpoints serve themselves; nothing more to do per connection.
	}
}

func runClient(addr, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := rpc.Dial(ctx, addr, rpc.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Fatalf("dial %s: %v", addr, err)
	}
	defer client.Close()

	reply, err := rpc.Invoke[string](ctx, client, "Echo", message)
	if err != nil {
		log.Fatalf("Echo call failed: %v", err)
	}
	log.Printf("server replied: %s", reply)
}
