package serializer

import (
	"fmt"
	"reflect"

	gojson "github.com/goccy/go-json"
)

// JSONSerializer is the default Serializer. It encodes argument
// vectors and single values as JSON text in UTF-8; goccy/go-json matches
// encoding/json's case-insensitive struct field decoding, so handlers can
// accept loosely-typed map[string]any arguments as well as concrete
// structs.
type JSONSerializer struct{}

var _ Serializer = JSONSerializer{}

func (JSONSerializer) Encode(value any) ([]byte, error) {
	b, err := gojson.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return b, nil
}

func (JSONSerializer) Decode(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	if err := gojson.Unmarshal(data, target); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

func (s JSONSerializer) EncodeArgs(args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return s.Encode(args)
}

func (s JSONSerializer) DecodeArgs(data []byte, paramTypes []reflect.Type) ([]any, error) {
	if len(paramTypes) == 0 {
		return nil, nil
	}

	raw := make([]gojson.RawMessage, 0, len(paramTypes))
	if len(data) > 0 {
		if err := gojson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("json decode args: %w", err)
		}
	}
	if len(raw) != len(paramTypes) {
		return nil, fmt.Errorf("json decode args: expected %d arguments, got %d", len(paramTypes), len(raw))
	}

	args := make([]any, len(paramTypes))
	for i, t := range paramTypes {
		v, err := DecodeInto(s, raw[i], t)
		if err != nil {
			return nil, fmt.Errorf("json decode args: argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}
