package callback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var (
	// ErrPreventUpdate is returned by a handler to leave every output
	// unchanged for the current dispatch cycle.
	ErrPreventUpdate = errors.New("callback: prevent update")
	// ErrArity reports a handler that returned the wrong number of values.
	ErrArity = errors.New("callback: handler result arity mismatch")
)

type noUpdate struct{}

func (noUpdate) String() string { return "<no_update>" }

// noUpdateKey tags the JSON form of NoUpdate so it can be restored after a
// round trip through an encoded store.
const noUpdateKey = "$prism_no_update"

func (noUpdate) MarshalJSON() ([]byte, error) {
	return []byte(`{"` + noUpdateKey + `":true}`), nil
}

// NoUpdate marks an output that keeps its current value this cycle.
var NoUpdate any = noUpdate{}

// IsNoUpdate reports whether v is the NoUpdate sentinel.
func IsNoUpdate(v any) bool {
	_, ok := v.(noUpdate)
	return ok
}

// NoUpdates returns n NoUpdate sentinels.
func NoUpdates(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = NoUpdate
	}
	return out
}

// RestoreNoUpdate replaces, in place, decoded JSON forms of NoUpdate in vals
// with the sentinel and returns vals.
func RestoreNoUpdate(vals []any) []any {
	for i, v := range vals {
		if m, ok := v.(map[string]any); ok && len(m) == 1 && m[noUpdateKey] == true {
			vals[i] = NoUpdate
		}
	}
	return vals
}

// HandlerFunc receives state values followed by input values.
type HandlerFunc func(ctx context.Context, args []any) ([]any, error)

// Handler is the invocable part of a descriptor.
type Handler interface {
	Arity() (in, out int)
	Call(ctx context.Context, args []any) ([]any, error)
}

type funcHandler struct {
	in, out int
	fn      HandlerFunc
}

// Func builds a Handler with a declared arity around fn. Call checks both the
// argument count and the result count.
func Func(in, out int, fn HandlerFunc) Handler {
	return &funcHandler{in: in, out: out, fn: fn}
}

func (h *funcHandler) Arity() (int, int) { return h.in, h.out }

func (h *funcHandler) Call(ctx context.Context, args []any) ([]any, error) {
	if len(args) != h.in {
		return nil, fmt.Errorf("%w: got %d args, want %d", ErrArity, len(args), h.in)
	}
	res, err := h.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(res) != h.out {
		return nil, fmt.Errorf("%w: got %d results, want %d", ErrArity, len(res), h.out)
	}
	return res, nil
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Reflect adapts an arbitrary Go function into a Handler. The function may
// take a leading context.Context and may return a trailing error; every
// other parameter is one argument and every other result is one output.
func Reflect(fn any) (Handler, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: handler must be a non-nil func, got %T", ErrInvalid, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic handler %s", ErrInvalid, t)
	}
	withCtx := t.NumIn() > 0 && t.In(0) == ctxType
	withErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errType

	in, out := t.NumIn(), t.NumOut()
	if withCtx {
		in--
	}
	if withErr {
		out--
	}
	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	return Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		callArgs := make([]reflect.Value, 0, t.NumIn())
		if withCtx {
			callArgs = append(callArgs, reflect.ValueOf(ctx))
		}
		for i, a := range args {
			p := params[len(callArgs)]
			av, err := convertArg(a, p)
			if err != nil {
				return nil, fmt.Errorf("callback: arg %d: %w", i, err)
			}
			callArgs = append(callArgs, av)
		}
		rets := v.Call(callArgs)
		if withErr {
			if e := rets[len(rets)-1]; !e.IsNil() {
				return nil, e.Interface().(error)
			}
			rets = rets[:len(rets)-1]
		}
		res := make([]any, len(rets))
		for i, r := range rets {
			res[i] = r.Interface()
		}
		return res, nil
	}), nil
}

// MustReflect is like Reflect but panics on an unusable function.
func MustReflect(fn any) Handler {
	h, err := Reflect(fn)
	if err != nil {
		panic(err)
	}
	return h
}

func convertArg(a any, p reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(p), nil
	}
	av := reflect.ValueOf(a)
	switch {
	case av.Type().AssignableTo(p):
		return av, nil
	case av.Type().ConvertibleTo(p) && av.Kind() != reflect.String && p.Kind() != reflect.String:
		if isFloat(av.Kind()) && isInteger(p.Kind()) && !fitsInteger(av.Float(), p) {
			return reflect.Value{}, fmt.Errorf("cannot use %v as %s without losing precision", a, p)
		}
		return av.Convert(p), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, p)
	}
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

// fitsInteger reports whether f is a whole number representable in p.
func fitsInteger(f float64, p reflect.Type) bool {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return false
	}
	z := reflect.New(p).Elem()
	if z.CanInt() {
		return f >= math.MinInt64 && f < math.MaxInt64 && !z.OverflowInt(int64(f))
	}
	return f >= 0 && f < math.MaxUint64 && !z.OverflowUint(uint64(f))
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
