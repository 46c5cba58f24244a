package protocol

import "errors"

var (
	// ErrInvalidKeyLength is returned when a key is not exactly KeySize bytes,
	// or a hex key does not decode to exactly KeySize bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrInvalidInput is returned when a primitive receives an argument it
	// cannot work with, such as a nil random source or a short IV.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidEncoding is returned when a token is not base64url text.
	// It is the only error Unpack reports for a bad token.
	ErrInvalidEncoding = errors.New("invalid websafe encoding")

	// ErrDecryptionFailed is returned when ciphertext is empty, not block
	// aligned, or carries malformed padding.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrClosed is returned when a codec is used after Close.
	ErrClosed = errors.New("codec is closed")
)
