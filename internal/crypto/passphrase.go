package crypto

import (
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/merlos/secretpack/pkg/protocol"
)

const (
	// KDFSaltSize is the salt size generated by DefaultKDFParams.
	KDFSaltSize = 16

	minKDFSaltSize = 8
)

// KDFParams are the Argon2id parameters for turning a passphrase into a
// master key. Memory is in KiB.
type KDFParams struct {
	Salt    []byte
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultKDFParams returns interactive Argon2id costs with a fresh salt read from r.
func DefaultKDFParams(r io.Reader) (KDFParams, error) {
	salt, err := randomBytes(r, KDFSaltSize)
	if err != nil {
		return KDFParams{}, fmt.Errorf("generating kdf salt: %w", err)
	}
	return KDFParams{Salt: salt, Time: 3, Memory: 64 * 1024, Threads: 4}, nil
}

// Validate checks the salt length and that every cost is non-zero.
func (p KDFParams) Validate() error {
	switch {
	case len(p.Salt) < minKDFSaltSize:
		return fmt.Errorf("%w: kdf salt is %d bytes, want at least %d", protocol.ErrInvalidInput, len(p.Salt), minKDFSaltSize)
	case p.Time == 0 || p.Memory == 0 || p.Threads == 0:
		return fmt.Errorf("%w: kdf costs must be non-zero", protocol.ErrInvalidInput)
	}
	return nil
}

// KeyFromPassphrase stretches a passphrase into a protocol.KeySize master key.
func KeyFromPassphrase(passphrase []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", protocol.ErrInvalidInput)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(passphrase, p.Salt, p.Time, p.Memory, p.Threads, protocol.KeySize), nil
}
