package rpc

import (
	"time"

	"github.com/appnet-org/tcprpc/internal/wire"
	"github.com/appnet-org/tcprpc/pkg/serializer"
)

// Options configures an Endpoint.
type Options struct {
	// Timeout is the per-call deadline for Invoke. Default 30s.
	Timeout time.Duration

	// MaxFrameBytes bounds total_length before a decode fails with
	// ProtocolError. Default 10 MiB.
	MaxFrameBytes int

	// Serializer encodes and decodes packet bodies. Default
	// serializer.JSONSerializer.
	Serializer serializer.Serializer
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = wire.DefaultMaxFrameBytes
	}
	if o.Serializer == nil {
		o.Serializer = serializer.JSONSerializer{}
	}
	return o
}
