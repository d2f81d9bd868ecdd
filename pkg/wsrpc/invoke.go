package wsrpc

import (
	"context"
	"reflect"

	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

// Invoke calls the named API on the peer and decodes its reply as T,
// blocking until the reply arrives, ctx is cancelled, or the endpoint's
// timeout elapses.
func Invoke[T any](ctx context.Context, e *Endpoint, api string, args ...any) (T, error) {
	var zero T
	returnType := reflect.TypeOf((*T)(nil)).Elem()

	value, err := e.call(ctx, api, args, returnType)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	result, ok := value.(T)
	if !ok {
		return zero, &rpcerr.SerializerError{Reason: "reply type did not match Invoke's type parameter"}
	}
	return result, nil
}

// InvokeOneWay calls the named API without waiting for a reply.
func InvokeOneWay(ctx context.Context, e *Endpoint, api string, args ...any) error {
	_, err := e.call(ctx, api, args, nil)
	return err
}

func (e *Endpoint) call(ctx context.Context, api string, args []any, returnType reflect.Type) (any, error) {
	if !e.Connected() {
		return nil, &rpcerr.ShutdownError{}
	}

	body, err := e.opts.Serializer.EncodeArgs(args)
	if err != nil {
		return nil, &rpcerr.SerializerError{Reason: "encoding call arguments", Err: err}
	}

	id := e.ids.Next()
	env := envelope{
		API:          api,
		PacketID:     id,
		IsFromClient: e.isClient,
		IsException:  false,
		Body:         body,
	}

	if returnType == nil {
		return nil, e.sendEnvelope(env)
	}

	future, err := e.pending.Park(id, returnType, e.nextDeadline())
	if err != nil {
		return nil, err
	}

	if err := e.sendEnvelope(env); err != nil {
		return nil, err
	}

	return future.Wait(ctx)
}
