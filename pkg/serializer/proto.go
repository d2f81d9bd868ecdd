package serializer

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// ProtoSerializer serializes single protobuf messages: one request
// message in, one response message out. It does not support
// multi-argument APIs: every registered API using this serializer must
// declare exactly one parameter, a proto.Message.
type ProtoSerializer struct{}

var _ Serializer = ProtoSerializer{}

func (ProtoSerializer) Encode(value any) ([]byte, error) {
	msg, ok := value.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("proto encode: %T does not implement proto.Message", value)
	}
	return proto.Marshal(msg)
}

func (ProtoSerializer) Decode(data []byte, target any) error {
	msg, ok := target.(proto.Message)
	if !ok {
		return fmt.Errorf("proto decode: %T does not implement proto.Message", target)
	}
	return proto.Unmarshal(data, msg)
}

func (s ProtoSerializer) EncodeArgs(args []any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("proto encode args: exactly one argument required, got %d", len(args))
	}
	return s.Encode(args[0])
}

func (s ProtoSerializer) DecodeArgs(data []byte, paramTypes []reflect.Type) ([]any, error) {
	if len(paramTypes) != 1 {
		return nil, fmt.Errorf("proto decode args: exactly one parameter required, got %d", len(paramTypes))
	}
	v, err := DecodeInto(s, data, paramTypes[0])
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}
