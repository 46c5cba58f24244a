// Package crypto provides all cryptographic primitives used by secretpack.
//
// Every function is a stateless transform over byte buffers. Randomness is
// always passed in as an io.Reader so callers decide where it comes from.
//
// Key derivation: SHA-256 over master_key || role. A single hash pass is only
// sound because the master key is already a uniformly random 256-bit secret.
// Passphrases must be stretched with KeyFromPassphrase first.
//
// Encryption: AES-256-CBC with PKCS#7 padding. Authentication: HMAC-SHA256.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/merlos/secretpack/pkg/protocol"
)

// Nonce returns protocol.NonceSize random bytes read from r.
func Nonce(r io.Reader) ([]byte, error) {
	return randomBytes(r, protocol.NonceSize)
}

// GenerateKey returns a fresh protocol.KeySize master key read from r.
func GenerateKey(r io.Reader) ([]byte, error) {
	return randomBytes(r, protocol.KeySize)
}

func randomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil random source", protocol.ErrInvalidInput)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// Derive returns SHA256(master || role).
func Derive(master []byte, role string) ([]byte, error) {
	if err := checkKey(master); err != nil {
		return nil, err
	}
	if role == "" {
		return nil, fmt.Errorf("%w: empty role", protocol.ErrInvalidInput)
	}
	h := sha256.New()
	h.Write(master)
	h.Write([]byte(role))
	return h.Sum(nil), nil
}

// Identify returns the first protocol.KeyIDSize bytes of
// SHA256(len(buf) || buf), where the length is a single byte.
func Identify(buf []byte) []byte {
	h := sha256.New()
	h.Write([]byte{byte(len(buf))})
	h.Write(buf)
	return h.Sum(nil)[:protocol.KeyIDSize]
}

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-256-CBC under
// key. The IV is read from r. The result is iv || ciphertext.
func Encrypt(r io.Reader, plaintext, key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	iv, err := randomBytes(r, protocol.IVSize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	padded := pad(plaintext)
	defer Zero(padded)

	out := make([]byte, protocol.IVSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[protocol.IVSize:], padded)
	return out, nil
}

// Decrypt reverses Encrypt for a ciphertext whose IV has already been split off.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(iv) != protocol.IVSize {
		return nil, fmt.Errorf("%w: iv is %d bytes, want %d", protocol.ErrInvalidInput, len(iv), protocol.IVSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%protocol.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", protocol.ErrDecryptionFailed, len(ciphertext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	n, ok := unpad(plain)
	if !ok {
		Zero(plain)
		return nil, fmt.Errorf("%w: bad padding", protocol.ErrDecryptionFailed)
	}
	Zero(plain[n:])
	return plain[:n], nil
}

// MAC returns HMAC-SHA256(key, buf).
func MAC(buf, key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m := hmac.New(sha256.New, key)
	m.Write(buf)
	return m.Sum(nil), nil
}

// Compare reports whether a and b are equal. For equal lengths the running
// time does not depend on the contents. A length mismatch returns early.
func Compare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// All reports whether every check passed. It always looks at all of them.
func All(checks ...bool) bool {
	v := 1
	for _, c := range checks {
		v &= boolToInt(c)
	}
	return subtle.ConstantTimeEq(int32(v), 1) == 1
}

func boolToInt(b bool) int {
	var i int
	if b {
		i = 1
	}
	return i
}

func checkKey(key []byte) error {
	if len(key) != protocol.KeySize {
		return fmt.Errorf("%w: got %d, want %d", protocol.ErrInvalidKeyLength, len(key), protocol.KeySize)
	}
	return nil
}

func pad(b []byte) []byte {
	n := protocol.PaddedSize(len(b))
	out := make([]byte, n)
	copy(out, b)
	p := byte(n - len(b))
	for i := len(b); i < n; i++ {
		out[i] = p
	}
	return out
}

// unpad returns the unpadded length of b. The padding bytes are checked
// without branching on their values.
func unpad(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	p := int(b[len(b)-1])
	if p == 0 || p > protocol.BlockSize || p > len(b) {
		return 0, false
	}
	good := 1
	for i := len(b) - p; i < len(b); i++ {
		good &= subtle.ConstantTimeByteEq(b[i], byte(p))
	}
	return len(b) - p, good == 1
}
