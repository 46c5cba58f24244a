package value

import "fmt"

// Serializer turns Values into bytes and back.
//
// Deserialize must accept exactly one encoded Value with nothing after it and
// fail with ErrMalformed otherwise. Decoded values must not alias the input,
// since callers zero it afterwards.
type Serializer interface {
	Name() string
	Serialize(Value) ([]byte, error)
	Deserialize([]byte) (Value, error)
}

// Names accepted by SerializerByName.
const (
	NameMsgpack = "msgpack"
	NameCBOR    = "cbor"
)

// SerializerByName returns the serializer registered under name.
// An empty name selects msgpack.
func SerializerByName(name string) (Serializer, error) {
	switch name {
	case "", NameMsgpack:
		return Msgpack{}, nil
	case NameCBOR:
		return CBOR{}, nil
	}
	return nil, fmt.Errorf("unknown serializer %q (want %s or %s)", name, NameMsgpack, NameCBOR)
}
