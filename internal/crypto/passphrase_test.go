package crypto_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/merlos/secretpack/internal/crypto"
	"github.com/merlos/secretpack/pkg/protocol"
)

// cheap keeps the tests fast; real profiles use DefaultKDFParams.
func cheap(salt []byte) crypto.KDFParams {
	return crypto.KDFParams{Salt: salt, Time: 1, Memory: 64, Threads: 1}
}

func TestKeyFromPassphrase(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, crypto.KDFSaltSize)
	k1, err := crypto.KeyFromPassphrase([]byte("correct horse"), cheap(salt))
	if err != nil {
		t.Fatalf("KeyFromPassphrase error = %v", err)
	}
	if len(k1) != protocol.KeySize {
		t.Errorf("key size = %d, want %d", len(k1), protocol.KeySize)
	}
	k2, _ := crypto.KeyFromPassphrase([]byte("correct horse"), cheap(salt))
	if !bytes.Equal(k1, k2) {
		t.Error("KeyFromPassphrase is not deterministic")
	}
	k3, _ := crypto.KeyFromPassphrase([]byte("correct horse"), cheap(bytes.Repeat([]byte{8}, crypto.KDFSaltSize)))
	if bytes.Equal(k1, k3) {
		t.Error("different salts produced the same key")
	}
	k4, _ := crypto.KeyFromPassphrase([]byte("battery staple"), cheap(salt))
	if bytes.Equal(k1, k4) {
		t.Error("different passphrases produced the same key")
	}
}

func TestKeyFromPassphrase_Invalid(t *testing.T) {
	salt := make([]byte, crypto.KDFSaltSize)
	tests := []struct {
		name string
		pass string
		p    crypto.KDFParams
	}{
		{"empty passphrase", "", cheap(salt)},
		{"short salt", "pw", cheap(salt[:4])},
		{"zero time", "pw", crypto.KDFParams{Salt: salt, Memory: 64, Threads: 1}},
		{"zero memory", "pw", crypto.KDFParams{Salt: salt, Time: 1, Threads: 1}},
		{"zero threads", "pw", crypto.KDFParams{Salt: salt, Time: 1, Memory: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := crypto.KeyFromPassphrase([]byte(tt.pass), tt.p)
			if !errors.Is(err, protocol.ErrInvalidInput) {
				t.Errorf("KeyFromPassphrase error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestDefaultKDFParams(t *testing.T) {
	p, err := crypto.DefaultKDFParams(rand.Reader)
	if err != nil {
		t.Fatalf("DefaultKDFParams error = %v", err)
	}
	if len(p.Salt) != crypto.KDFSaltSize {
		t.Errorf("salt size = %d, want %d", len(p.Salt), crypto.KDFSaltSize)
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		t.Errorf("DefaultKDFParams returned zero cost: %+v", p)
	}
	if _, err := crypto.DefaultKDFParams(nil); !errors.Is(err, protocol.ErrInvalidInput) {
		t.Errorf("DefaultKDFParams(nil) error = %v, want ErrInvalidInput", err)
	}
}
