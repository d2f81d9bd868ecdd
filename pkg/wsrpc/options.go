package wsrpc

import (
	"time"

	"github.com/appnet-org/tcprpc/pkg/serializer"
)

// Options configures an Endpoint.
type Options struct {
	// Timeout is the per-call deadline for Invoke. Default 30s.
	Timeout time.Duration

	// Serializer encodes and decodes envelope bodies. Default
	// serializer.JSONSerializer — this variant is JSON-only by name, but
	// the interface stays pluggable for symmetry with pkg/rpc.
	Serializer serializer.Serializer
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Serializer == nil {
		o.Serializer = serializer.JSONSerializer{}
	}
	return o
}
