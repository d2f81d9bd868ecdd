package serializer

import (
	"fmt"
	"reflect"

	capnp "capnproto.org/go/capnp/v3"
)

// capnpMessenger is implemented by every capnp codegen'd struct wrapper:
// it exposes the capnp.Message backing the value so it can be packed onto
// the wire.
type capnpMessenger interface {
	Message() *capnp.Message
}

// CapnpSerializer serializes single Cap'n Proto messages. Rather than
// requiring a hand-written adapter per generated message type, Decode
// resolves the generated zero-value's DecodeFromPtr method by reflection —
// every capnpc-go struct wrapper (EchoRequest, EchoResponse, ...) carries
// one with an identical signature.
type CapnpSerializer struct{}

var _ Serializer = CapnpSerializer{}

func (CapnpSerializer) Encode(value any) ([]byte, error) {
	m, ok := value.(capnpMessenger)
	if !ok {
		return nil, fmt.Errorf("capnp encode: %T does not implement Message() *capnp.Message", value)
	}
	return m.Message().MarshalPacked()
}

func (CapnpSerializer) Decode(data []byte, target any) error {
	tv := reflect.ValueOf(target)
	if tv.Kind() != reflect.Pointer || tv.IsNil() {
		return fmt.Errorf("capnp decode: target must be a non-nil pointer")
	}
	elemType := tv.Elem().Type()

	decodeMethod := reflect.Zero(elemType).MethodByName("DecodeFromPtr")
	if !decodeMethod.IsValid() {
		return fmt.Errorf("capnp decode: %s has no DecodeFromPtr method", elemType)
	}

	msg, err := capnp.UnmarshalPacked(data)
	if err != nil {
		return fmt.Errorf("capnp decode: %w", err)
	}
	root, err := msg.Root()
	if err != nil {
		return fmt.Errorf("capnp decode: %w", err)
	}

	out := decodeMethod.Call([]reflect.Value{reflect.ValueOf(root)})
	tv.Elem().Set(out[0])
	return nil
}

func (s CapnpSerializer) EncodeArgs(args []any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("capnp encode args: exactly one argument required, got %d", len(args))
	}
	return s.Encode(args[0])
}

func (s CapnpSerializer) DecodeArgs(data []byte, paramTypes []reflect.Type) ([]any, error) {
	if len(paramTypes) != 1 {
		return nil, fmt.Errorf("capnp decode args: exactly one parameter required, got %d", len(paramTypes))
	}
	v, err := DecodeInto(s, data, paramTypes[0])
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}
