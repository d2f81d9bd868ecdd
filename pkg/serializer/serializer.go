// Package serializer defines the pluggable payload codec (C4) used to turn
// call arguments and return values into wire bytes and back. The default
// is JSON; ProtoSerializer and CapnpSerializer are drop-in alternates for
// applications whose argument and return types are protobuf or Cap'n
// Proto messages.
package serializer

import "reflect"

// Serializer encodes and decodes application values for packet bodies.
// Any implementation is acceptable provided it is symmetric on both
// peers.
type Serializer interface {
	// Encode produces the wire bytes for a single value (a reply body or,
	// for Proto/Capnp serializers, a lone request argument).
	Encode(value any) ([]byte, error)

	// Decode parses data into target, which must be a non-nil pointer.
	Decode(data []byte, target any) error

	// EncodeArgs produces the request body for an ordered argument
	// vector.
	EncodeArgs(args []any) ([]byte, error)

	// DecodeArgs parses a request body into an argument vector matching
	// paramTypes in order: the serializer is handed the whole body plus
	// the ordered parameter types and yields the argument vector.
	DecodeArgs(data []byte, paramTypes []reflect.Type) ([]any, error)
}
