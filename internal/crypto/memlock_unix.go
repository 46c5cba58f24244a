//go:build linux || darwin

package crypto

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Lock pins b in RAM so it is never written to swap.
func Lock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mlock(b); err != nil {
		return fmt.Errorf("mlock: %w", err)
	}
	return nil
}

// Unlock releases a region pinned by Lock.
func Unlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munlock(b); err != nil {
		return fmt.Errorf("munlock: %w", err)
	}
	return nil
}
