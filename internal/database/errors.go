package database

import (
	"errors"
	"fmt"
)

var (
	// ErrStore marks read or write failures of the identity store.
	ErrStore = errors.New("identity store failure")

	// ErrNotFound is returned when an identity does not exist.
	ErrNotFound = errors.New("identity not found")
)

// StoreError wraps err with ErrStore and the failing operation.
func StoreError(op string, err error) error {
	if errors.Is(err, ErrStore) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
