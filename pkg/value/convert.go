package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// FromGo converts a plain Go value into a Value.
//
// Accepted: nil, bool, every signed and unsigned integer type, float32,
// float64, json.Number, string, []byte, slices and arrays, maps with string
// keys, pointers to any of these, and Value itself. Unsigned values above
// math.MaxInt64 and every other type fail with ErrUnsupported.
func FromGo(x any) (Value, error) {
	return fromGo(reflect.ValueOf(x), 0)
}

var (
	valueType = reflect.TypeOf(Value{})
	bytesType = reflect.TypeOf([]byte(nil))
)

func fromGo(rv reflect.Value, depth int) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	if rv.Type() == valueType {
		v := rv.Interface().(Value)
		if depth+v.depth() > MaxDepth {
			return Value{}, ErrTooDeep
		}
		return v, nil
	}
	if n, ok := rv.Interface().(json.Number); ok {
		return fromNumber(n)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromGo(rv.Elem(), depth)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.IsNil() {
				return Bytes(nil), nil
			}
			return Bytes(rv.Convert(bytesType).Interface().([]byte)), nil
		}
		if rv.IsNil() {
			return Null(), nil
		}
		return fromList(rv, depth)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return Value{kind: KindBytes, raw: b}, nil
		}
		return fromList(rv, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: map key type %s", ErrUnsupported, rv.Type().Key())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		return fromMap(rv, depth)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupported, rv.Type())
}

func fromList(rv reflect.Value, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, ErrTooDeep
	}
	list := make([]Value, rv.Len())
	for i := range list {
		e, err := fromGo(rv.Index(i), depth+1)
		if err != nil {
			return Value{}, err
		}
		list[i] = e
	}
	return Value{kind: KindList, list: list}, nil
}

func fromMap(rv reflect.Value, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, ErrTooDeep
	}
	m := make(map[string]Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		e, err := fromGo(iter.Value(), depth+1)
		if err != nil {
			return Value{}, err
		}
		m[iter.Key().String()] = e
	}
	return Value{kind: KindMap, m: m}, nil
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: number %q", ErrUnsupported, n.String())
	}
	return Float(f), nil
}

// Interface converts v back into plain Go values: nil, bool, int64, float64,
// string, []byte, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return append([]byte{}, v.raw...)
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}
