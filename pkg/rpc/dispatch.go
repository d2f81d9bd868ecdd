package rpc

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/appnet-org/tcprpc/internal/logging"
	"github.com/appnet-org/tcprpc/internal/registry"
	"github.com/appnet-org/tcprpc/internal/wire"
	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

// handleRequest executes one incoming request packet against the
// registry and sends back a reply or an exception frame. It never
// returns an error to its caller: every failure is either turned into a
// wire exception or handed to the exception hook and logged.
func (e *Endpoint) handleRequest(pkt wire.Packet) {
	desc, ok := e.registry.TryGet(pkt.APIName)
	if !ok {
		e.raise(pkt, &rpcerr.ApiNotFoundError{Name: pkt.APIName})
		return
	}

	args, err := e.opts.Serializer.DecodeArgs(pkt.Body, desc.ParameterTypes)
	if err != nil {
		e.raise(pkt, &rpcerr.ApiExecutionError{Name: pkt.APIName, Err: err})
		return
	}

	result, callErr := e.invokeHandler(desc, args)
	if callErr != nil {
		// An aggregate failure is answered with its first inner error;
		// every inner error is handed to the exception hook on its own.
		inner := multierr.Errors(callErr)
		e.sendException(pkt, &rpcerr.ApiExecutionError{Name: pkt.APIName, Err: inner[0]})
		for _, ierr := range inner {
			wrapped := &rpcerr.ApiExecutionError{Name: pkt.APIName, Err: ierr}
			if e.onException == nil || !e.onException(pkt, wrapped) {
				logging.Error("request handling failed", zap.String("api", pkt.APIName), zap.Uint32("packet_id", pkt.PacketID), zap.Error(wrapped))
			}
		}
		return
	}

	if desc.ReturnType == registry.Void {
		return
	}

	body, err := e.opts.Serializer.Encode(result)
	if err != nil {
		e.raise(pkt, &rpcerr.ApiExecutionError{Name: pkt.APIName, Err: err})
		return
	}

	reply := wire.Packet{
		APIName:      pkt.APIName,
		PacketID:     pkt.PacketID,
		IsFromClient: pkt.IsFromClient,
		IsException:  false,
		Body:         body,
	}
	if err := e.send(reply); err != nil {
		logging.Warn("failed to send reply", zap.String("api", pkt.APIName), zap.Error(err))
	}
}

// invokeHandler calls the descriptor and, if the handler itself panics,
// recovers and reports it as an execution error rather than letting it
// unwind into the shared worker pool (a handler author's bug must not
// take down unrelated in-flight calls).
func (e *Endpoint) invokeHandler(desc *registry.Descriptor, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = multierr.Append(err, fmt.Errorf("handler panic: %v", r))
		}
	}()
	return desc.Invoke(args)
}

// raise routes err through the exception hook, logs it when the hook does
// not report it handled, and then sends an exception frame echoing pkt's
// id and direction flag.
func (e *Endpoint) raise(pkt wire.Packet, err error) {
	handled := false
	if e.onException != nil {
		handled = e.onException(pkt, err)
	}
	if !handled {
		logging.Error("request handling failed", zap.String("api", pkt.APIName), zap.Uint32("packet_id", pkt.PacketID), zap.Error(err))
	}
	e.sendException(pkt, err)
}

func (e *Endpoint) sendException(pkt wire.Packet, err error) {
	reply := wire.Packet{
		APIName:      pkt.APIName,
		PacketID:     pkt.PacketID,
		IsFromClient: pkt.IsFromClient,
		IsException:  true,
		Body:         []byte(err.Error()),
	}
	if sendErr := e.send(reply); sendErr != nil {
		logging.Warn("failed to send exception", zap.String("api", pkt.APIName), zap.Error(sendErr))
	}
}
