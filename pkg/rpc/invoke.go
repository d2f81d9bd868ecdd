package rpc

import (
	"context"
	"reflect"

	"github.com/appnet-org/tcprpc/internal/wire"
	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

// Invoke calls the named API registered on the peer endpoint and decodes
// its reply as T. It blocks until the reply arrives, ctx is cancelled, or
// the endpoint's configured timeout elapses, whichever comes first.
//
// T must match the return type the peer's handler declares; a mismatch
// surfaces as a *rpcerr.SerializerError rather than a panic, since the
// pending table decodes the reply body against reflect.TypeOf((*T)(nil)).Elem()
// (the generic parameter, not the concrete value), so type mismatches are
// caught before this function returns.
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

// InvokeOneWay calls the named API and does not wait for (or expect) a
// reply: the peer's handler must declare no return value. It still
// encodes and sends the request synchronously and reports a send
// failure, but completes as soon as the frame is written.
func InvokeOneWay(ctx context.Context, e *Endpoint, api string, args ...any) error {
	_, err := e.call(ctx, api, args, nil)
	return err
}

// call is the shared request path behind Invoke and InvokeOneWay: encode
// the argument vector, park a completion slot keyed by a fresh packet id
// (unless returnType is nil, the one-way case), send the frame, then wait
// for the peer's reply or ctx's cancellation.
func (e *Endpoint) call(ctx context.Context, api string, args []any, returnType reflect.Type) (any, error) {
	if !e.Connected() {
		return nil, &rpcerr.ShutdownError{}
	}

	body, err := e.opts.Serializer.EncodeArgs(args)
	if err != nil {
		return nil, &rpcerr.SerializerError{Reason: "encoding call arguments", Err: err}
	}

	id := e.ids.Next()
	pkt := wire.Packet{
		APIName:      api,
		PacketID:     id,
		IsFromClient: e.isClient,
		IsException:  false,
		Body:         body,
	}

	if returnType == nil {
		if err := e.send(pkt); err != nil {
			return nil, err
		}
		return nil, nil
	}

	future, err := e.pending.Park(id, returnType, e.nextDeadline())
	if err != nil {
		return nil, err
	}

	if err := e.send(pkt); err != nil {
		return nil, err
	}

	return future.Wait(ctx)
}
