package value

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Msgpack is the default serializer. Integers use the most compact encoding,
// floats are always float64 and map keys are written in sorted order, so equal
// Values serialize to equal bytes.
//
// The decoder also accepts float32 and the legacy raw str16 form written by
// older msgpack implementations.
type Msgpack struct{}

func (Msgpack) Name() string { return NameMsgpack }

func (Msgpack) Serialize(v Value) ([]byte, error) {
	if v.depth() > MaxDepth {
		return nil, ErrTooDeep
	}
	w := newWipingBuffer(64)
	enc := msgpack.NewEncoder(w)
	if err := encodeMsgpack(enc, v); err != nil {
		w.wipe()
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return w.b, nil
}

func encodeMsgpack(e *msgpack.Encoder, v Value) error {
	switch v.kind {
	case KindNull:
		return e.EncodeNil()
	case KindBool:
		return e.EncodeBool(v.b)
	case KindInt:
		return e.EncodeInt(v.i)
	case KindFloat:
		return e.EncodeFloat64(v.f)
	case KindString:
		return e.EncodeString(v.s)
	case KindBytes:
		// EncodeBytes writes nil for a nil slice.
		if v.raw == nil {
			return e.EncodeBytes([]byte{})
		}
		return e.EncodeBytes(v.raw)
	case KindList:
		if err := e.EncodeArrayLen(len(v.list)); err != nil {
			return err
		}
		for _, el := range v.list {
			if err := encodeMsgpack(e, el); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := e.EncodeMapLen(len(v.m)); err != nil {
			return err
		}
		for _, k := range v.Keys() {
			if err := e.EncodeString(k); err != nil {
				return err
			}
			if err := encodeMsgpack(e, v.m[k]); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: kind %s", ErrUnsupported, v.kind)
}

func (Msgpack) Deserialize(b []byte) (Value, error) {
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	v, err := decodeMsgpack(dec, r, 0)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if r.Len() != 0 {
		return Value{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Len())
	}
	return v, nil
}

// decodeMsgpack reads one value. The decoder reads straight from r, which
// lets lengths be checked against what is actually left before allocating.
func decodeMsgpack(d *msgpack.Decoder, r *bytes.Reader, depth int) (Value, error) {
	c, err := d.PeekCode()
	if err != nil {
		return Value{}, err
	}

	switch {
	case c == msgpcode.Nil:
		return Null(), d.DecodeNil()
	case c == msgpcode.False || c == msgpcode.True:
		b, err := d.DecodeBool()
		return Bool(b), err
	case c == msgpcode.Uint64:
		u, err := d.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("uint64 %d overflows int64", u)
		}
		return Int(int64(u)), nil
	case msgpcode.IsFixedNum(c) || isMsgpackInt(c):
		i, err := d.DecodeInt64()
		return Int(i), err
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := d.DecodeFloat64()
		return Float(f), err
	case msgpcode.IsString(c):
		b, err := readMsgpackRaw(d, r)
		if err != nil {
			return Value{}, err
		}
		s := string(b)
		clear(b)
		return String(s), nil
	case msgpcode.IsBin(c):
		b, err := readMsgpackRaw(d, r)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindBytes, raw: b}, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		return decodeMsgpackList(d, r, depth)
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		return decodeMsgpackMap(d, r, depth)
	}
	return Value{}, fmt.Errorf("unsupported code %#x", c)
}

func isMsgpackInt(c byte) bool {
	switch c {
	case msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32,
		msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64:
		return true
	}
	return false
}

func decodeMsgpackList(d *msgpack.Decoder, r *bytes.Reader, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, ErrTooDeep
	}
	n, err := d.DecodeArrayLen()
	if err != nil {
		return Value{}, err
	}
	// Every element takes at least one byte.
	if n > r.Len() {
		return Value{}, fmt.Errorf("array of %d elements exceeds remaining %d bytes", n, r.Len())
	}
	list := make([]Value, n)
	for i := range list {
		if list[i], err = decodeMsgpack(d, r, depth+1); err != nil {
			return Value{}, err
		}
	}
	return Value{kind: KindList, list: list}, nil
}

func decodeMsgpackMap(d *msgpack.Decoder, r *bytes.Reader, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, ErrTooDeep
	}
	n, err := d.DecodeMapLen()
	if err != nil {
		return Value{}, err
	}
	// Every entry takes at least two bytes.
	if n > r.Len()/2 {
		return Value{}, fmt.Errorf("map of %d entries exceeds remaining %d bytes", n, r.Len())
	}
	m := make(map[string]Value, n)
	for range n {
		c, err := d.PeekCode()
		if err != nil {
			return Value{}, err
		}
		if !msgpcode.IsString(c) {
			return Value{}, fmt.Errorf("map key code %#x is not a string", c)
		}
		kb, err := readMsgpackRaw(d, r)
		if err != nil {
			return Value{}, err
		}
		k := string(kb)
		clear(kb)
		if _, dup := m[k]; dup {
			return Value{}, fmt.Errorf("duplicate map key %q", k)
		}
		if m[k], err = decodeMsgpack(d, r, depth+1); err != nil {
			return Value{}, err
		}
	}
	return Value{kind: KindMap, m: m}, nil
}

func readMsgpackRaw(d *msgpack.Decoder, r *bytes.Reader) ([]byte, error) {
	n, err := d.DecodeBytesLen()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > r.Len() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
