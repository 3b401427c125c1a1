// Package repository contains the version store abstraction.
// Implementations live in subpackages (postgres, memory).
package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrStoreFailure wraps any transactional failure (connection loss, constraint violation, ...).
	ErrStoreFailure = errors.New("store failure")
)

// StoreFailure wraps err so that errors.Is(err, ErrStoreFailure) holds while the cause stays reachable.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}
