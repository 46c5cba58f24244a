// Package packet turns structured values into authenticated, encrypted,
// URL-safe tokens under a shared 256-bit master key, and back.
//
// Pack and Unpack are safe for concurrent use on the same Codec. A token that
// fails to authenticate, decrypt or parse is reported as absent, never as an
// error, so callers cannot learn why it was rejected.
package packet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/merlos/secretpack/internal/crypto"
	"github.com/merlos/secretpack/pkg/protocol"
	"github.com/merlos/secretpack/pkg/value"
)

// zero erases transients. Tests swap it to observe what gets erased.
var zero = crypto.Zero

// Options configures a Codec. The zero value and nil are both valid.
type Options struct {
	// Rand is the source of nonces and IVs. Defaults to crypto/rand.Reader.
	// It must be safe for concurrent use if the Codec is shared.
	Rand io.Reader

	// Serializer encodes values inside the packet. Defaults to msgpack.
	Serializer value.Serializer

	// Log receives debug events. Key material is never logged.
	// Defaults to discarding everything.
	Log *slog.Logger

	// Direction selects the derived key pair. Both peers must agree on it.
	// Defaults to protocol.SenderToReceiver.
	Direction protocol.Direction

	// LockMemory pins the master key in RAM with mlock. Failure to lock is
	// logged and otherwise ignored.
	LockMemory bool
}

// Codec packs and unpacks tokens under one master key.
type Codec struct {
	masterKey  []byte
	keyID      []byte
	cipherRole string
	hmacRole   string
	rand       io.Reader
	serializer value.Serializer
	log        *slog.Logger
	locked     bool
	closed     atomic.Bool
}

// New returns a Codec for a 32-byte master key. The key is copied.
func New(key []byte, opts *Options) (*Codec, error) {
	if len(key) != protocol.KeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", protocol.ErrInvalidKeyLength, len(key), protocol.KeySize)
	}
	if opts == nil {
		opts = &Options{}
	}

	c := &Codec{
		masterKey:  append(make([]byte, 0, protocol.KeySize), key...),
		keyID:      crypto.Identify(key),
		rand:       opts.Rand,
		serializer: opts.Serializer,
		log:        opts.Log,
	}
	c.cipherRole, c.hmacRole = opts.Direction.Roles()
	if c.rand == nil {
		c.rand = rand.Reader
	}
	if c.serializer == nil {
		c.serializer = value.Msgpack{}
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}

	if opts.LockMemory {
		if err := crypto.Lock(c.masterKey); err != nil {
			c.log.Warn("memory lock failed", "err", err)
		} else {
			c.locked = true
		}
	}

	c.log.Debug("codec ready", "key_id", c.Fingerprint(), "serializer", c.serializer.Name(), "direction", opts.Direction, "locked", c.locked)
	return c, nil
}

// NewFromHex returns a Codec for a master key given as 64 hex characters.
func NewFromHex(hexKey string, opts *Options) (*Codec, error) {
	key, err := crypto.DecodeKey(hexKey)
	if err != nil {
		return nil, err
	}
	defer zero(key)
	return New(key, opts)
}

// KeyID returns a copy of the 6-byte key identifier.
func (c *Codec) KeyID() []byte {
	return append([]byte{}, c.keyID...)
}

// Fingerprint returns the key identifier as hex.
func (c *Codec) Fingerprint() string {
	return hex.EncodeToString(c.keyID)
}

// Serializer returns the serializer used inside packets.
func (c *Codec) Serializer() value.Serializer {
	return c.serializer
}

// Close zeroes the master key and releases its memory lock. The Codec is
// unusable afterwards. Close must not be called while Pack or Unpack are
// running. Calling it again is a no-op.
func (c *Codec) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	zero(c.masterKey)
	if c.locked {
		c.locked = false
		if err := crypto.Unlock(c.masterKey); err != nil {
			return fmt.Errorf("unlocking master key: %w", err)
		}
	}
	return nil
}
