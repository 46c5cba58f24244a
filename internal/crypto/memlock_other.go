//go:build !linux && !darwin

package crypto

// Lock is a no-op on platforms without mlock.
func Lock(b []byte) error { return nil }

// Unlock is a no-op on platforms without munlock.
func Unlock(b []byte) error { return nil }
