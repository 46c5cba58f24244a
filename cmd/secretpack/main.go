// Command secretpack packs structured values into authenticated, encrypted,
// URL-safe tokens under a shared master key, and unpacks them again.
//
// Usage:
//
//	secretpack keygen                    # create the default profile
//	secretpack keygen work --passphrase  # derive the 'work' key from a passphrase
//	secretpack keygen --qr               # also display the key as a QR code
//	secretpack pack '{"user":"alice"}'   # pack a JSON value
//	echo hello | secretpack pack --raw   # pack stdin as a plain string
//	secretpack unpack <token>            # print the packed value as JSON
//	secretpack keyid                     # print the key fingerprint
//	secretpack list                      # list all profiles
//	secretpack revoke <profile>          # delete a profile
package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/merlos/secretpack/internal/config"
	"github.com/merlos/secretpack/internal/crypto"
	"github.com/merlos/secretpack/internal/qr"
	"github.com/merlos/secretpack/pkg/packet"
	"github.com/merlos/secretpack/pkg/protocol"
	"github.com/merlos/secretpack/pkg/value"
)

var (
	configPath  string
	profileName string
	logLevel    string
)

// Swapped in tests.
var (
	stdout         io.Writer = os.Stdout
	stdin          io.Reader = os.Stdin
	readPassphrase           = promptPassphrase
	kdfParams                = crypto.DefaultKDFParams
)

func main() {
	root := &cobra.Command{
		Use:   "secretpack",
		Short: "Pack values into encrypted, authenticated URL-safe tokens",
		Long: `secretpack serializes a value, encrypts it with AES-256-CBC and
authenticates it with HMAC-SHA256 under keys derived from a shared 256-bit
master key. The result is a compact base64url token that only holders of the
same key can open.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&profileName, "profile", config.DefaultProfile, "profile to use")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newKeygenCmd(),
		newPackCmd(),
		newUnpackCmd(),
		newKeyIDCmd(),
		newListCmd(),
		newRevokeCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger creates a slog.Logger at the configured level.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("a passphrase is required but stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(fd)
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack keygen [profile]
// ────────────────────────────────────────────────────────────────────────────

type keygenOptions struct {
	force      bool
	importKey  string
	passphrase bool
	serializer string
	lockMemory bool
	showQR     bool
	qrOut      string
	qrOmitKey  bool
}

func newKeygenCmd() *cobra.Command {
	var opts keygenOptions

	cmd := &cobra.Command{
		Use:   "keygen [profile]",
		Short: "Create a profile with a new master key",
		Long: `Generate a random 256-bit master key and store it as a profile.

With --passphrase, only Argon2id parameters are stored and the key is derived
from a passphrase each time the profile is used. With --key, an existing hex
key is imported instead.

Example:
  secretpack keygen
  secretpack keygen work --serializer cbor --qr
  secretpack keygen laptop --passphrase`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := profileName
			if len(args) == 1 {
				name = args[0]
			}
			return runKeygen(name, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing profile")
	cmd.Flags().StringVar(&opts.importKey, "key", "", "import this hex master key instead of generating one")
	cmd.Flags().BoolVar(&opts.passphrase, "passphrase", false, "derive the key from a passphrase (Argon2id)")
	cmd.Flags().StringVar(&opts.serializer, "serializer", value.NameMsgpack, "body encoding: msgpack or cbor")
	cmd.Flags().BoolVar(&opts.lockMemory, "lock-memory", false, "mlock the master key while in use")
	cmd.Flags().BoolVar(&opts.showQR, "qr", false, "display the key as a QR code in the terminal")
	cmd.Flags().StringVar(&opts.qrOut, "qr-out", "", "write the key QR PNG to this file path")
	cmd.Flags().BoolVar(&opts.qrOmitKey, "qr-no-key", false, "share only the key fingerprint in the QR")
	cmd.MarkFlagsMutuallyExclusive("key", "passphrase")

	return cmd
}

// runKeygen creates or replaces a profile. It refuses to overwrite an
// existing profile unless opts.force is set.
func runKeygen(name string, opts keygenOptions) error {
	cfg, err := config.LoadOrNew(configPath)
	if err != nil {
		return err
	}
	if _, exists := cfg.Profiles[name]; exists && !opts.force {
		return fmt.Errorf("profile %q already exists in %s\nUse --force to overwrite, or 'secretpack revoke %s' first", name, configPath, name)
	}

	now := time.Now().UTC().Truncate(time.Second)
	profile := &config.Profile{
		Serializer: opts.serializer,
		LockMemory: opts.lockMemory,
		Created:    &now,
	}

	var key []byte
	switch {
	case opts.passphrase:
		params, err := kdfParams(rand.Reader)
		if err != nil {
			return err
		}
		profile.KDF = config.NewKDF(params)
		key, err = profile.MasterKey(confirmPassphrase)
		if err != nil {
			return err
		}
	case opts.importKey != "":
		key, err = crypto.DecodeKey(opts.importKey)
		if err != nil {
			return err
		}
		profile.Key = crypto.EncodeKey(key)
	default:
		key, err = crypto.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("generating master key: %w", err)
		}
		profile.Key = crypto.EncodeKey(key)
	}
	defer crypto.Zero(key)

	if err := profile.Validate(); err != nil {
		return err
	}
	cfg.Profiles[name] = profile
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fingerprint := crypto.FingerprintKey(key)
	newLogger().Debug("profile saved", "profile", name, "source", profile.Source(), "key_id", fingerprint)

	fmt.Fprintf(stdout, `Profile %q created.

  Config:      %s
  Key source:  %s
  Serializer:  %s
  Key ID:      %s

`, name, configPath, profile.Source(), serializerName(profile), fingerprint)

	if opts.showQR || opts.qrOut != "" {
		payload := &qr.Payload{
			Profile:    name,
			Key:        crypto.EncodeKey(key),
			KeyID:      fingerprint,
			Serializer: serializerName(profile),
		}
		if opts.qrOmitKey {
			fmt.Fprintln(stdout, "QR carries only the key fingerprint.")
		} else {
			fmt.Fprintln(stdout, "⚠ WARNING: QR contains the master key. Treat it as a secret!")
		}
		if err := qr.Generate(payload, &qr.GenerateOptions{
			OmitKey:    opts.qrOmitKey,
			OutputPath: opts.qrOut,
			Out:        stdout,
		}); err != nil {
			return fmt.Errorf("generating QR: %w", err)
		}
	}
	return nil
}

func confirmPassphrase() ([]byte, error) {
	pass, err := readPassphrase("Passphrase: ")
	if err != nil {
		return nil, err
	}
	again, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		crypto.Zero(pass)
		return nil, err
	}
	defer crypto.Zero(again)
	if !bytes.Equal(pass, again) {
		crypto.Zero(pass)
		return nil, errors.New("passphrases do not match")
	}
	return pass, nil
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack pack [json]
// ────────────────────────────────────────────────────────────────────────────

func newPackCmd() *cobra.Command {
	var (
		raw    bool
		reply  bool
		showQR bool
		qrOut  string
	)

	cmd := &cobra.Command{
		Use:   "pack [json]",
		Short: "Pack a JSON value (or stdin) into a token",
		Long: `Pack a value into a token using the selected profile.

The value is read from the argument, or from stdin when no argument is given.
It is parsed as JSON unless --raw is set, in which case it is packed as a
plain string.

Example:
  secretpack pack '{"user":"alice","admin":true}'
  echo -n 'hello' | secretpack pack --raw --profile work`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(args, raw, reply, showQR, qrOut)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "pack the input as a plain string instead of JSON")
	cmd.Flags().BoolVar(&reply, "reply", false, "use the receiver-to-sender key pair")
	cmd.Flags().BoolVar(&showQR, "qr", false, "also display the token as a QR code")
	cmd.Flags().StringVar(&qrOut, "qr-out", "", "write the token QR PNG to this file path")

	return cmd
}

func runPack(args []string, raw, reply, showQR bool, qrOut string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}

	var v value.Value
	if raw {
		v = value.String(input)
	} else {
		v, err = parseJSON(input)
		if err != nil {
			return err
		}
	}

	c, err := openCodec(profileName, reply)
	if err != nil {
		return err
	}
	defer c.Close()

	token, err := c.Pack(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)

	if showQR || qrOut != "" {
		if err := qr.GenerateText(token, &qr.GenerateOptions{OutputPath: qrOut, Out: stdout}); err != nil {
			return fmt.Errorf("generating QR: %w", err)
		}
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack unpack [token]
// ────────────────────────────────────────────────────────────────────────────

func newUnpackCmd() *cobra.Command {
	var reply bool

	cmd := &cobra.Command{
		Use:   "unpack [token]",
		Short: "Unpack a token (or stdin) and print its value as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(args, reply)
		},
	}

	cmd.Flags().BoolVar(&reply, "reply", false, "use the receiver-to-sender key pair")

	return cmd
}

func runUnpack(args []string, reply bool) error {
	token, err := readInput(args)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)

	c, err := openCodec(profileName, reply)
	if err != nil {
		return err
	}
	defer c.Close()

	v, ok, err := c.Unpack(token)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("token rejected")
	}

	out, err := json.MarshalIndent(v.Interface(), "", "  ")
	if err != nil {
		return fmt.Errorf("formatting %s value as JSON: %w", v.Kind(), err)
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack keyid
// ────────────────────────────────────────────────────────────────────────────

func newKeyIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keyid",
		Short: "Print the key fingerprint of the selected profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyID(profileName)
		},
	}
}

func runKeyID(name string) error {
	c, err := openCodec(name, false)
	if err != nil {
		return err
	}
	defer c.Close()
	fmt.Fprintln(stdout, c.Fingerprint())
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack list
// ────────────────────────────────────────────────────────────────────────────

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Profiles) == 0 {
		fmt.Fprintln(stdout, "No profiles configured.")
		return nil
	}
	fmt.Fprintf(stdout, "%-16s %-10s %-10s %-14s %s\n", "NAME", "SOURCE", "SERIALIZER", "KEY ID", "CREATED")
	fmt.Fprintln(stdout, "─────────────────────────────────────────────────────────────────")
	for _, name := range cfg.Names() {
		p := cfg.Profiles[name]
		source := p.Source()
		if source == "" {
			source = "invalid"
		}
		created := "unknown"
		if p.Created != nil {
			created = p.Created.Format("2006-01-02")
		}
		fmt.Fprintf(stdout, "%-16s %-10s %-10s %-14s %s\n", name, source, serializerName(p), listKeyID(p), created)
	}
	return nil
}

// listKeyID fingerprints keys that can be resolved without a passphrase.
func listKeyID(p *config.Profile) string {
	if p.Source() == config.SourceKDF {
		return "(passphrase)"
	}
	key, err := p.MasterKey(nil)
	if err != nil {
		return "invalid"
	}
	defer crypto.Zero(key)
	return crypto.FingerprintKey(key)
}

// ────────────────────────────────────────────────────────────────────────────
// secretpack revoke <profile>
// ────────────────────────────────────────────────────────────────────────────

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <profile>",
		Short: "Delete a profile and its key from the config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevoke(args[0])
		},
	}
}

func runRevoke(name string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(cfg.Profiles, name)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Profile %q revoked. Tokens packed under its key can no longer be opened with this config.\n", name)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────

// openCodec builds a Codec for the named profile. The caller must Close it.
func openCodec(name string, reply bool) (*packet.Codec, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	p, err := config.GetProfile(cfg, name)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	ser, err := value.SerializerByName(p.Serializer)
	if err != nil {
		return nil, err
	}

	key, err := p.MasterKey(func() ([]byte, error) { return readPassphrase("Passphrase: ") })
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	defer crypto.Zero(key)

	direction := protocol.SenderToReceiver
	if reply {
		direction = protocol.ReceiverToSender
	}
	return packet.New(key, &packet.Options{
		Serializer: ser,
		Log:        newLogger(),
		Direction:  direction,
		LockMemory: p.LockMemory,
	})
}

func serializerName(p *config.Profile) string {
	if p.Serializer == "" {
		return value.NameMsgpack
	}
	return p.Serializer
}

// readInput returns the single argument, or all of stdin without its
// trailing newline.
func readInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r"), nil
}

// parseJSON decodes exactly one JSON value, keeping integers exact.
func parseJSON(s string) (value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return value.Value{}, fmt.Errorf("parsing JSON input: %w (use --raw to pack plain text)", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return value.Value{}, errors.New("parsing JSON input: trailing data after value")
	}
	return value.FromGo(x)
}
