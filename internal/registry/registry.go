// Package registry implements the API registry (C5): a frozen-after-
// construction map from API name to a descriptor carrying the parameter
// types, return type, and an invoker built by reflecting on a registered
// Go function.
package registry

import (
	"fmt"
	"reflect"
)

// Void is the sentinel return type signaling that an API emits no reply.
var Void reflect.Type

// Descriptor is an API's callable shape: name, parameter types in
// declaration order, declared return type (nil == Void), and an invoker
// that applies a decoded argument vector against the handler function.
type Descriptor struct {
	Name           string
	ParameterTypes []reflect.Type
	ReturnType     reflect.Type
	fn             reflect.Value
}

// Invoke calls the underlying handler with the given argument vector and
// returns its result value (nil if ReturnType is Void) or the error it
// produced.
func (d *Descriptor) Invoke(args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(d.ParameterTypes[i])
			continue
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(d.ParameterTypes[i]) {
			if v.Type().ConvertibleTo(d.ParameterTypes[i]) {
				v = v.Convert(d.ParameterTypes[i])
			} else {
				return nil, fmt.Errorf("registry: argument %d: cannot use %s as %s", i, v.Type(), d.ParameterTypes[i])
			}
		}
		in[i] = v
	}

	out := d.fn.Call(in)

	var errVal error
	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
			if !last.IsNil() {
				errVal = last.Interface().(error)
			}
			out = out[:n-1]
		}
	}
	if errVal != nil {
		return nil, errVal
	}
	if d.ReturnType == nil || len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// Registry maps API names to descriptors. It is safe to build from a
// single goroutine and, once Freeze is called, safe for concurrent
// read-only lookups with no locking.
type Registry struct {
	byName map[string]*Descriptor
	frozen bool
}

// New returns an empty, mutable registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register builds a Descriptor by reflecting on handler's function type
// and adds it under name. handler must be a func whose trailing return
// value, if present, is an error; at most one non-error return value is
// permitted (that value becomes ReturnType, otherwise ReturnType is Void).
// Register panics on a duplicate name or frozen registry — both are
// programmer errors caught at construction, before the endpoint ever
// accepts a packet ("registration is frozen before the endpoint
// starts accepting packets").
func (r *Registry) Register(name string, handler any) {
	if r.frozen {
		panic("registry: Register called after Freeze")
	}
	if name == "" {
		panic("registry: API name must not be empty")
	}
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("registry: API %q already registered", name))
	}

	fn := reflect.ValueOf(handler)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("registry: handler for %q is not a function", name))
	}

	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	var returnType reflect.Type
	numOut := ft.NumOut()
	if numOut > 0 && ft.Out(numOut-1) == errType {
		numOut--
	}
	switch numOut {
	case 0:
		returnType = Void
	case 1:
		returnType = ft.Out(0)
	default:
		panic(fmt.Sprintf("registry: handler for %q must return at most one value plus an optional error", name))
	}

	r.byName[name] = &Descriptor{
		Name:           name,
		ParameterTypes: params,
		ReturnType:     returnType,
		fn:             fn,
	}
}

// Freeze marks the registry immutable. Calling it more than once is a
// no-op.
func (r *Registry) Freeze() {
	r.frozen = true
}

// TryGet returns the descriptor registered under name, or (nil, false) if
// none was (name lookup is case-sensitive,"Name lookup").
func (r *Registry) TryGet(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}
