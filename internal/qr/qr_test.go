package qr_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/merlos/secretpack/internal/qr"
)

func testPayload() *qr.Payload {
	return &qr.Payload{
		Profile:    "default",
		Key:        strings.Repeat("bc", 32),
		KeyID:      "f45d82a64a1e",
		Serializer: "msgpack",
	}
}

func TestGenerate_ASCII(t *testing.T) {
	var out bytes.Buffer
	if err := qr.Generate(testPayload(), &qr.GenerateOptions{Out: &out}); err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if out.Len() == 0 {
		t.Error("Generate wrote no ASCII art")
	}
}

func TestGenerate_OmitKeyIsSmaller(t *testing.T) {
	var full, omitted bytes.Buffer
	if err := qr.Generate(testPayload(), &qr.GenerateOptions{Out: &full}); err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if err := qr.Generate(testPayload(), &qr.GenerateOptions{Out: &omitted, OmitKey: true}); err != nil {
		t.Fatalf("Generate(OmitKey) error = %v", err)
	}
	if omitted.Len() >= full.Len() {
		t.Errorf("QR without key (%d bytes) should be smaller than with key (%d bytes)", omitted.Len(), full.Len())
	}
}

func TestGenerate_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.png")
	var out bytes.Buffer
	if err := qr.Generate(testPayload(), &qr.GenerateOptions{OutputPath: path, Size: 128, Out: &out}); err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading PNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output file is not a PNG")
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("status line %q does not mention %s", out.String(), path)
	}
}

func TestGenerateText(t *testing.T) {
	var out bytes.Buffer
	if err := qr.GenerateText("W7l1PJaffzMzIzzpI1hg75AubQ_PNSjE", &qr.GenerateOptions{Out: &out}); err != nil {
		t.Fatalf("GenerateText error = %v", err)
	}
	if out.Len() == 0 {
		t.Error("GenerateText wrote nothing")
	}
	if err := qr.GenerateText("", nil); err == nil {
		t.Error("GenerateText(\"\") should fail")
	}
}
