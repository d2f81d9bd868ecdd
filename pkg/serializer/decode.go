package serializer

import "reflect"

// DecodeInto decodes data into a freshly allocated value of type t and
// returns it as an any of exactly type t. If t is itself a pointer type
// (as with a proto.Message or capnp struct argument/return type), the
// target passed to codec is the pointer itself rather than a pointer to a
// pointer, so codecs that type-assert on proto.Message/capnp shapes see
// the type they expect.
func DecodeInto(codec Serializer, data []byte, t reflect.Type) (any, error) {
	if t.Kind() == reflect.Pointer {
		target := reflect.New(t.Elem())
		if err := codec.Decode(data, target.Interface()); err != nil {
			return nil, err
		}
		return target.Interface(), nil
	}

	target := reflect.New(t)
	if err := codec.Decode(data, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}
