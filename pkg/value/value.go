// Package value defines the structured values carried inside a packet and the
// serializers that turn them into bytes.
//
// A Value is a tagged sum: exactly one of null, bool, int, float, string,
// bytes, list or string-keyed map. Anything else is rejected at the boundary
// by FromGo or by a serializer, never silently coerced.
package value

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MaxDepth bounds how deeply lists and maps may nest.
const MaxDepth = 32

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable structured value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	list []Value
	m    map[string]Value
}

func Null() Value           { return Value{} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes returns a bytes Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

// List returns a list Value holding a copy of vs.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value{}, vs...)}
}

// Map returns a map Value holding a copy of m.
func Map(m map[string]Value) Value {
	c := make(map[string]Value, len(m))
	maps.Copy(c, m)
	return Value{kind: KindMap, m: c}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string held by v. It is not named String so that Value can
// implement fmt.Stringer.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Bytes returns a copy of the bytes held by v.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte{}, v.raw...), true
}

// List returns a copy of the elements held by v.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value{}, v.list...), true
}

// Map returns a copy of the entries held by v.
func (v Value) Map() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	c := make(map[string]Value, len(v.m))
	maps.Copy(c, v.m)
	return c, true
}

// Len returns the number of elements of a list, entries of a map, or bytes of
// a string or byte value. It is zero for every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.s)
	case KindBytes:
		return len(v.raw)
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Keys returns the keys of a map value in sorted order.
func (v Value) Keys() []string {
	return slices.Sorted(maps.Keys(v.m))
}

// Equal reports whether v and w hold the same variant with deeply equal contents.
// Floats compare with ==, so NaN is never equal to itself.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == w.b
	case KindInt:
		return v.i == w.i
	case KindFloat:
		return v.f == w.f
	case KindString:
		return v.s == w.s
	case KindBytes:
		return bytes.Equal(v.raw, w.raw)
	case KindList:
		return slices.EqualFunc(v.list, w.list, Value.Equal)
	case KindMap:
		return maps.EqualFunc(v.m, w.m, Value.Equal)
	}
	return false
}

// String renders v for debugging. Map keys are sorted.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		fmt.Fprint(sb, v.b)
	case KindInt:
		fmt.Fprint(sb, v.i)
	case KindFloat:
		fmt.Fprint(sb, v.f)
	case KindString:
		fmt.Fprintf(sb, "%q", v.s)
	case KindBytes:
		fmt.Fprintf(sb, "0x%x", v.raw)
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q: ", k)
			v.m[k].format(sb)
		}
		sb.WriteByte('}')
	}
}

// depth returns the nesting depth of v. Scalars have depth 0.
func (v Value) depth() int {
	d := 0
	switch v.kind {
	case KindList:
		for _, e := range v.list {
			d = max(d, e.depth())
		}
		return d + 1
	case KindMap:
		for _, e := range v.m {
			d = max(d, e.depth())
		}
		return d + 1
	}
	return 0
}
