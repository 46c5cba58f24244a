package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/merlos/secretpack/pkg/protocol"
)

var websafe = base64.RawURLEncoding.Strict()

const websafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Stringify encodes buf as unpadded base64url text.
func Stringify(buf []byte) string {
	return websafe.EncodeToString(buf)
}

// Binify decodes unpadded base64url text. Any character outside the
// base64url alphabet, padding and whitespace included, is rejected.
func Binify(s string) ([]byte, error) {
	if i := strings.IndexFunc(s, notWebsafe); i >= 0 {
		return nil, fmt.Errorf("%w: unexpected character at offset %d", protocol.ErrInvalidEncoding, i)
	}
	b, err := websafe.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvalidEncoding, err)
	}
	return b, nil
}

func notWebsafe(r rune) bool {
	return !strings.ContainsRune(websafeAlphabet, r)
}

// EncodeKey hex-encodes a key for storage in config files.
func EncodeKey(key []byte) string {
	return hex.EncodeToString(key)
}

// DecodeKey decodes a 64-character hex master key.
func DecodeKey(s string) ([]byte, error) {
	if len(s) != protocol.KeyHexSize {
		return nil, fmt.Errorf("%w: got %d hex characters, want %d", protocol.ErrInvalidKeyLength, len(s), protocol.KeyHexSize)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvalidKeyLength, err)
	}
	return b, nil
}

// FingerprintKey returns the key identifier of key as hex.
func FingerprintKey(key []byte) string {
	return hex.EncodeToString(Identify(key))
}
