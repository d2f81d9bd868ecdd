// Package rpcerr defines the error kinds the RPC runtime can surface to
// callers and to the endpoint's exception hook, per the error handling
// design: ProtocolError is fatal to the connection, SerializerError/
// ApiNotFoundError/ApiExecutionError are converted to a remote exception
// reply, RemoteError/TimeoutError/ShutdownError are the error outcomes of
// a pending call, and DuplicateIdError is raised synchronously by Park
// before any call is pending.
package rpcerr

import "fmt"

// ProtocolError indicates a malformed frame; the connection carrying it
// must be closed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("rpc: protocol error: %s", e.Reason) }

// SerializerError wraps a failure to encode or decode a payload.
type SerializerError struct {
	Reason string
	Err    error
}

func (e *SerializerError) Error() string {
	return fmt.Sprintf("rpc: serializer error: %s: %v", e.Reason, e.Err)
}

func (e *SerializerError) Unwrap() error { return e.Err }

// ApiNotFoundError is raised when an incoming request names an API that is
// not registered on this endpoint.
type ApiNotFoundError struct {
	Name string
}

func (e *ApiNotFoundError) Error() string { return fmt.Sprintf("API '%s' not found", e.Name) }

// ApiExecutionError wraps a handler's own failure.
type ApiExecutionError struct {
	Name string
	Err  error
}

func (e *ApiExecutionError) Error() string {
	return fmt.Sprintf("API %q failed: %v", e.Name, e.Err)
}

func (e *ApiExecutionError) Unwrap() error { return e.Err }

// RemoteError is delivered to Invoke's future when the peer replied with an
// exception packet.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// TimeoutError is delivered when a pending call's deadline elapses before a
// reply arrives.
type TimeoutError struct {
	PacketID uint32
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc: call %d timed out", e.PacketID)
}

// ShutdownError is delivered to every still-pending call when the
// connection is dropped.
type ShutdownError struct{}

func (e *ShutdownError) Error() string { return "rpc: connection shut down" }

// DuplicateIdError is a programmer-error signal raised synchronously by
// park when the id source produced a collision.
type DuplicateIdError struct {
	PacketID uint32
}

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("rpc: packet id %d already pending", e.PacketID)
}
