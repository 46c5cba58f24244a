package packet

import (
	"fmt"

	"github.com/merlos/secretpack/internal/crypto"
	"github.com/merlos/secretpack/pkg/protocol"
	"github.com/merlos/secretpack/pkg/value"
)

// Pack serializes v, prepends a fresh nonce, encrypts and authenticates the
// result, and returns it as base64url text.
func (c *Codec) Pack(v value.Value) (string, error) {
	if c.closed.Load() {
		return "", protocol.ErrClosed
	}

	nonce, err := crypto.Nonce(c.rand)
	if err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	defer zero(nonce)

	payload, err := c.serializer.Serialize(v)
	if err != nil {
		return "", fmt.Errorf("serializing %s value: %w", v.Kind(), err)
	}
	defer zero(payload)

	body := make([]byte, 0, len(nonce)+len(payload))
	body = append(body, nonce...)
	body = append(body, payload...)
	defer zero(body)

	cipherKey, err := crypto.Derive(c.masterKey, c.cipherRole)
	if err != nil {
		return "", err
	}
	defer zero(cipherKey)

	sealed, err := crypto.Encrypt(c.rand, body, cipherKey)
	if err != nil {
		return "", fmt.Errorf("encrypting body: %w", err)
	}
	defer zero(sealed)

	packet := make([]byte, protocol.KeyIDSize+len(sealed)+protocol.MACSize)
	n := copy(packet, c.keyID)
	n += copy(packet[n:], sealed)
	defer zero(packet)

	hmacKey, err := crypto.Derive(c.masterKey, c.hmacRole)
	if err != nil {
		return "", err
	}
	defer zero(hmacKey)

	tag, err := crypto.MAC(packet[:n], hmacKey)
	if err != nil {
		return "", err
	}
	defer zero(tag)
	copy(packet[n:], tag)

	return crypto.Stringify(packet), nil
}

// Unpack reverses Pack. A token that is not base64url text fails with
// protocol.ErrInvalidEncoding. Any other problem, whether a wrong key, a
// tampered byte or a garbled body, yields a null Value and false.
func (c *Codec) Unpack(token string) (value.Value, bool, error) {
	if c.closed.Load() {
		return value.Null(), false, protocol.ErrClosed
	}

	packet, err := crypto.Binify(token)
	if err != nil {
		return value.Null(), false, err
	}
	defer zero(packet)

	v, ok := c.open(packet)
	if !ok {
		c.log.Debug("token rejected", "bytes", len(packet))
		return value.Null(), false, nil
	}
	return v, true, nil
}

func (c *Codec) open(packet []byte) (value.Value, bool) {
	frame, ok := protocol.Split(packet)
	if !ok {
		return value.Null(), false
	}

	hmacKey, err := crypto.Derive(c.masterKey, c.hmacRole)
	if err != nil {
		return value.Null(), false
	}
	defer zero(hmacKey)

	tag, err := crypto.MAC(frame.Authenticated, hmacKey)
	if err != nil {
		return value.Null(), false
	}
	defer zero(tag)

	// Both comparisons always run so a wrong key looks like a bad MAC.
	if !crypto.All(crypto.Compare(tag, frame.MAC), crypto.Compare(c.keyID, frame.KeyID)) {
		return value.Null(), false
	}

	cipherKey, err := crypto.Derive(c.masterKey, c.cipherRole)
	if err != nil {
		return value.Null(), false
	}
	defer zero(cipherKey)

	body, err := crypto.Decrypt(frame.Ciphertext, cipherKey, frame.IV)
	if err != nil {
		return value.Null(), false
	}
	defer zero(body)

	if len(body) < protocol.NonceSize {
		return value.Null(), false
	}
	v, err := c.serializer.Deserialize(body[protocol.NonceSize:])
	if err != nil {
		return value.Null(), false
	}
	return v, true
}

// PackAny converts x with value.FromGo and packs it.
func (c *Codec) PackAny(x any) (string, error) {
	v, err := value.FromGo(x)
	if err != nil {
		return "", err
	}
	return c.Pack(v)
}

// UnpackAny unpacks token and converts the result with Value.Interface.
func (c *Codec) UnpackAny(token string) (any, bool, error) {
	v, ok, err := c.Unpack(token)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.Interface(), true, nil
}
