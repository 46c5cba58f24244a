// Package qr renders secretpack keys and tokens as QR codes.
//
// A key-share payload is a JSON object holding the master key, so callers
// should warn users to treat the QR as a secret. Tokens are encoded as-is.
package qr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	goqr "github.com/skip2/go-qrcode"
)

// Payload is the key-share data encoded into the QR code.
type Payload struct {
	// Profile is the suggested profile name on the receiving side.
	Profile string `json:"profile"`

	// Key is the hex-encoded master key.
	// Omitted if GenerateOptions.OmitKey is true.
	Key string `json:"key,omitempty"`

	// KeyID is the hex key fingerprint, so the receiver can confirm the import.
	KeyID string `json:"key_id"`

	// Serializer names the body encoding both peers must use.
	Serializer string `json:"serializer,omitempty"`
}

// GenerateOptions controls QR code generation.
type GenerateOptions struct {
	// OmitKey leaves the master key out of the payload, sharing only its
	// fingerprint.
	OmitKey bool

	// Size is the QR image size in pixels (default: 256).
	Size int

	// OutputPath is the file path to write the QR PNG to.
	// If empty, the QR is printed to Out as ASCII art.
	OutputPath string

	// RecoveryLevel is the QR error correction level (L, M, Q, H).
	// Default is M.
	RecoveryLevel goqr.RecoveryLevel

	// Out receives ASCII art and status lines. Defaults to os.Stdout.
	Out io.Writer
}

// Generate encodes payload into a QR code. If opts.OutputPath is set, the PNG
// is written to that path; otherwise ASCII art is printed to opts.Out.
func Generate(payload *Payload, opts *GenerateOptions) error {
	opts = withDefaults(opts)

	p := *payload
	if opts.OmitKey {
		p.Key = ""
	}

	data, err := json.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshalling QR payload: %w", err)
	}
	return render(string(data), opts)
}

// GenerateText encodes text, typically a packed token, into a QR code.
func GenerateText(text string, opts *GenerateOptions) error {
	if text == "" {
		return fmt.Errorf("nothing to encode")
	}
	return render(text, withDefaults(opts))
}

func withDefaults(opts *GenerateOptions) *GenerateOptions {
	o := GenerateOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Size == 0 {
		o.Size = 256
	}
	if o.RecoveryLevel == 0 {
		o.RecoveryLevel = goqr.Medium
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	return &o
}

func render(content string, opts *GenerateOptions) error {
	if opts.OutputPath != "" {
		if err := goqr.WriteFile(content, opts.RecoveryLevel, opts.Size, opts.OutputPath); err != nil {
			return fmt.Errorf("writing QR PNG to %s: %w", opts.OutputPath, err)
		}
		fmt.Fprintf(opts.Out, "QR code written to %s\n", opts.OutputPath)
		return nil
	}

	q, err := goqr.New(content, opts.RecoveryLevel)
	if err != nil {
		return fmt.Errorf("generating QR: %w", err)
	}
	fmt.Fprintln(opts.Out, q.ToSmallString(false))
	return nil
}
