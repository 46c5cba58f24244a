package value_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/merlos/secretpack/pkg/value"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestMsgpack_Encoding(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"nil", value.Null(), "c0"},
		{"true", value.Bool(true), "c3"},
		{"fixint", value.Int(5), "05"},
		{"uint16", value.Int(65234), "cd fed2"},
		{"negative fixint", value.Int(-1), "ff"},
		{"int8", value.Int(-33), "d0 df"},
		{"float", value.Float(1.5), "cb 3ff8000000000000"},
		{"fixstr", value.String("hi"), "a2 6869"},
		{"bin", value.Bytes([]byte{1, 2}), "c4 02 0102"},
		{"empty bin", value.Bytes(nil), "c4 00"},
		{"array", value.List(value.Int(1), value.String("a")), "92 01 a161"},
		{"sorted map", value.Map(map[string]value.Value{"b": value.Int(1), "a": value.Int(2)}), "82 a161 02 a162 01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := value.Msgpack{}.Serialize(tt.in)
			if err != nil {
				t.Fatalf("Serialize error = %v", err)
			}
			if want := hexBytes(t, tt.want); hex.EncodeToString(got) != hex.EncodeToString(want) {
				t.Errorf("Serialize = %x, want %x", got, want)
			}
		})
	}
}

func TestMsgpack_RoundTrip(t *testing.T) {
	long := strings.Repeat("x", 70000)
	values := []value.Value{
		sample(),
		value.String(long),
		value.Bytes([]byte(long)),
		value.Int(-1 << 63),
		value.List(),
		value.Map(nil),
	}
	for _, v := range values {
		b, err := value.Msgpack{}.Serialize(v)
		if err != nil {
			t.Fatalf("Serialize error = %v", err)
		}
		got, err := value.Msgpack{}.Deserialize(b)
		if err != nil {
			t.Fatalf("Deserialize error = %v", err)
		}
		if !got.Equal(v) {
			t.Errorf("round trip of %.60s gave %.60s", v, got)
		}
	}
}

func TestMsgpack_LegacyForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want value.Value
	}{
		{"raw16 string", "da 0003 616263", value.String("abc")},
		{"float32", "ca 3fc00000", value.Float(1.5)},
		{"uint64 in range", "cf 7fffffffffffffff", value.Int(1<<63 - 1)},
		{"int64", "d3 8000000000000000", value.Int(-1 << 63)},
		{"map16", "de 0001 a16b c0", value.Map(map[string]value.Value{"k": value.Null()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := value.Msgpack{}.Deserialize(hexBytes(t, tt.in))
			if err != nil {
				t.Fatalf("Deserialize error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Deserialize = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMsgpack_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"reserved code", "c1"},
		{"uint64 overflow", "cf ffffffffffffffff"},
		{"trailing bytes", "c0 c0"},
		{"short string", "a5 6869"},
		{"huge str32", "db ffffffff"},
		{"huge bin32", "c6 ffffffff 00"},
		{"huge array32", "dd ffffffff"},
		{"array past end", "92 01"},
		{"huge map32", "df ffffffff"},
		{"int map key", "81 01 02"},
		{"duplicate key", "82 a161 01 a161 02"},
		{"fixext", "d4 01 00"},
		{"ext8", "c7 01 05 00"},
		{"truncated int", "cd fe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (value.Msgpack{}).Deserialize(hexBytes(t, tt.in)); !errors.Is(err, value.ErrMalformed) {
				t.Errorf("Deserialize(%s) error = %v, want ErrMalformed", tt.in, err)
			}
		})
	}
}

func TestMsgpack_Depth(t *testing.T) {
	ok := strings.Repeat("91", value.MaxDepth) + "c0"
	if _, err := (value.Msgpack{}).Deserialize(hexBytes(t, ok)); err != nil {
		t.Errorf("Deserialize(%d levels) error = %v", value.MaxDepth, err)
	}
	deep := strings.Repeat("91", value.MaxDepth+1) + "c0"
	if _, err := (value.Msgpack{}).Deserialize(hexBytes(t, deep)); !errors.Is(err, value.ErrMalformed) {
		t.Errorf("Deserialize(%d levels) error = %v, want ErrMalformed", value.MaxDepth+1, err)
	}

	v := value.Null()
	for range value.MaxDepth + 1 {
		v = value.List(v)
	}
	if _, err := (value.Msgpack{}).Serialize(v); !errors.Is(err, value.ErrTooDeep) {
		t.Errorf("Serialize(%d levels) error = %v, want ErrTooDeep", value.MaxDepth+1, err)
	}
}

func TestMsgpack_DecodedBytesDoNotAlias(t *testing.T) {
	in := hexBytes(t, "c4 03 010203")
	v, err := (value.Msgpack{}).Deserialize(in)
	if err != nil {
		t.Fatal(err)
	}
	clear(in)
	got, _ := v.Bytes()
	if hex.EncodeToString(got) != "010203" {
		t.Errorf("decoded bytes changed after zeroing the input: %x", got)
	}
}
