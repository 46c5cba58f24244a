// Package config handles reading and writing secretpack configuration files in YAML format.
//
// The config is stored at ~/.secretpack/config.yaml by default. It holds named
// profiles, each describing where a master key comes from and how tokens are
// serialized.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/merlos/secretpack/internal/crypto"
	"github.com/merlos/secretpack/pkg/value"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// Key sources reported by Profile.Source.
const (
	SourceKey     = "key"
	SourceKeyFile = "key_file"
	SourceKDF     = "kdf"
)

// ErrNoKeySource is returned when a profile names no key source, or more than one.
var ErrNoKeySource = errors.New("profile must set exactly one of key, key_file or kdf")

// KDF holds Argon2id parameters for a passphrase-derived master key.
// The passphrase itself is never stored.
type KDF struct {
	// Salt is the standard base64-encoded Argon2id salt.
	Salt string `yaml:"salt"`

	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"` // KiB
	Threads uint8  `yaml:"threads"`
}

// NewKDF converts crypto parameters into their config form.
func NewKDF(p crypto.KDFParams) *KDF {
	return &KDF{
		Salt:    base64.StdEncoding.EncodeToString(p.Salt),
		Time:    p.Time,
		Memory:  p.Memory,
		Threads: p.Threads,
	}
}

// Params decodes k into crypto parameters.
func (k *KDF) Params() (crypto.KDFParams, error) {
	salt, err := base64.StdEncoding.DecodeString(k.Salt)
	if err != nil {
		return crypto.KDFParams{}, fmt.Errorf("decoding kdf salt: %w", err)
	}
	return crypto.KDFParams{Salt: salt, Time: k.Time, Memory: k.Memory, Threads: k.Threads}, nil
}

// Profile is a single named key profile.
type Profile struct {
	// Key is the hex-encoded 32-byte master key.
	Key string `yaml:"key,omitempty"`

	// KeyFile is a path to a file holding the hex-encoded master key.
	KeyFile string `yaml:"key_file,omitempty"`

	// KDF derives the master key from a passphrase prompted at use time.
	KDF *KDF `yaml:"kdf,omitempty"`

	// Serializer is "msgpack" (default) or "cbor".
	Serializer string `yaml:"serializer,omitempty"`

	// LockMemory pins the master key in RAM while in use.
	LockMemory bool `yaml:"lock_memory,omitempty"`

	// Created is when the profile was generated.
	Created *time.Time `yaml:"created,omitempty"`
}

// Source returns which key source the profile uses, or "" if it sets none
// or several.
func (p *Profile) Source() string {
	var set []string
	if p.Key != "" {
		set = append(set, SourceKey)
	}
	if p.KeyFile != "" {
		set = append(set, SourceKeyFile)
	}
	if p.KDF != nil {
		set = append(set, SourceKDF)
	}
	if len(set) != 1 {
		return ""
	}
	return set[0]
}

// Validate checks that the profile can produce a master key and names a
// known serializer. Key files are not read.
func (p *Profile) Validate() error {
	switch p.Source() {
	case SourceKey:
		key, err := crypto.DecodeKey(p.Key)
		if err != nil {
			return fmt.Errorf("key: %w", err)
		}
		crypto.Zero(key)
	case SourceKeyFile:
	case SourceKDF:
		params, err := p.KDF.Params()
		if err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return fmt.Errorf("kdf: %w", err)
		}
	default:
		return ErrNoKeySource
	}
	if _, err := value.SerializerByName(p.Serializer); err != nil {
		return err
	}
	return nil
}

// MasterKey resolves the profile's master key. passphrase is called only for
// kdf profiles. The caller owns the returned slice and should zero it.
func (p *Profile) MasterKey(passphrase func() ([]byte, error)) ([]byte, error) {
	switch p.Source() {
	case SourceKey:
		return crypto.DecodeKey(p.Key)
	case SourceKeyFile:
		data, err := os.ReadFile(expandHome(p.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		defer crypto.Zero(data)
		return crypto.DecodeKey(strings.TrimSpace(string(data)))
	case SourceKDF:
		params, err := p.KDF.Params()
		if err != nil {
			return nil, err
		}
		if passphrase == nil {
			return nil, errors.New("profile needs a passphrase")
		}
		pass, err := passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		defer crypto.Zero(pass)
		return crypto.KeyFromPassphrase(pass, params)
	}
	return nil, ErrNoKeySource
}

// Config is the top-level structure for ~/.secretpack/config.yaml.
type Config struct {
	// Profiles maps profile names to their configuration.
	// The profile named "default" is used when no profile is specified.
	Profiles map[string]*Profile `yaml:"profiles"`
}

// New returns an empty Config.
func New() *Config {
	return &Config{Profiles: make(map[string]*Profile)}
}

// Names returns the profile names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfigPath returns the default path to the config file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".secretpack/config.yaml"
	}
	return filepath.Join(home, ".secretpack", "config.yaml")
}

// Load reads and parses a config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	return cfg, nil
}

// LoadOrNew behaves like Load but returns an empty Config when path does not exist.
func LoadOrNew(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return cfg, err
}

// Save writes the config to path, creating directories as needed.
// The file is written with 0600 permissions since it contains keys.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// GetProfile returns the named profile, falling back to "default" if name is empty.
// Returns an error if the profile does not exist.
func GetProfile(cfg *Config, name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found in config", name)
	}
	return p, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
