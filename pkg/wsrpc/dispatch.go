package wsrpc

import (
	"go.uber.org/zap"

	"github.com/appnet-org/tcprpc/internal/logging"
	"github.com/appnet-org/tcprpc/internal/registry"
	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

func (e *Endpoint) handleRequest(env envelope) {
	desc, ok := e.registry.TryGet(env.API)
	if !ok {
		e.raise(env, &rpcerr.ApiNotFoundError{Name: env.API})
		return
	}

	args, err := e.opts.Serializer.DecodeArgs(env.Body, desc.ParameterTypes)
	if err != nil {
		e.raise(env, &rpcerr.ApiExecutionError{Name: env.API, Err: err})
		return
	}

	result, err := desc.Invoke(args)
	if err != nil {
		e.raise(env, &rpcerr.ApiExecutionError{Name: env.API, Err: err})
		return
	}

	if desc.ReturnType == registry.Void {
		return
	}

	body, err := e.opts.Serializer.Encode(result)
	if err != nil {
		e.raise(env, &rpcerr.ApiExecutionError{Name: env.API, Err: err})
		return
	}

	reply := envelope{
		API:          env.API,
		PacketID:     env.PacketID,
		IsFromClient: env.IsFromClient,
		IsException:  false,
		Body:         body,
	}
	if err := e.sendEnvelope(reply); err != nil {
		logging.Warn("failed to send websocket reply", zap.String("api", env.API), zap.Error(err))
	}
}

func (e *Endpoint) raise(env envelope, err error) {
	handled := false
	if e.onException != nil {
		handled = e.onException(env.API, env.PacketID, err)
	}
	if !handled {
		logging.Error("websocket request handling failed", zap.String("api", env.API), zap.Uint32("packet_id", env.PacketID), zap.Error(err))
	}
	body, encErr := e.opts.Serializer.Encode(err.Error())
	if encErr != nil {
		logging.Warn("failed to encode websocket exception body", zap.Error(encErr))
		return
	}
	reply := envelope{
		API:          env.API,
		PacketID:     env.PacketID,
		IsFromClient: env.IsFromClient,
		IsException:  true,
		Body:         body,
	}
	if sendErr := e.sendEnvelope(reply); sendErr != nil {
		logging.Warn("failed to send websocket exception", zap.String("api", env.API), zap.Error(sendErr))
	}
}
