package value

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR serializes Values as RFC 8949 CBOR with canonical map key order.
// Tags are rejected on decode, integers must fit in int64 and map keys must
// be unique text strings.
type CBOR struct{}

var (
	cborEncMode = mustEncMode(cbor.EncOptions{
		Sort: cbor.SortCanonical,
	})
	cborDecMode = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: MaxDepth,
		TagsMd:          cbor.TagsForbidden,
		IntDec:          cbor.IntDecConvertSignedOrFail,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid encode options: %v", err))
	}
	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid decode options: %v", err))
	}
	return dm
}

func (CBOR) Name() string { return NameCBOR }

func (CBOR) Serialize(v Value) ([]byte, error) {
	if v.depth() > MaxDepth {
		return nil, ErrTooDeep
	}
	b, err := cborEncMode.Marshal(toCBOR(v))
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return b, nil
}

// toCBOR maps v onto the Go types the cbor encoder understands. Empty byte
// strings, lists and maps stay non-nil so they are not written as null.
func toCBOR(v Value) any {
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
		if v.raw == nil {
			return []byte{}
		}
		return v.raw
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = toCBOR(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = toCBOR(e)
		}
		return out
	}
	return nil
}

func (CBOR) Deserialize(b []byte) (Value, error) {
	var x any
	if err := cborDecMode.Unmarshal(b, &x); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	v, err := fromCBOR(x)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

// fromCBOR accepts exactly the types the decoder produces for supported
// items. Anything else, such as simple values, is rejected.
func fromCBOR(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Value{kind: KindBytes, raw: t}, nil
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			v, err := fromCBOR(e)
			if err != nil {
				return Value{}, err
			}
			list[i] = v
		}
		return Value{kind: KindList, list: list}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromCBOR(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Value{kind: KindMap, m: m}, nil
	}
	return Value{}, fmt.Errorf("unsupported item of type %T", x)
}
