package database

import (
	"context"
)

// IdentityReader provides read-only access to the identity store
type IdentityReader interface {
	// ScanPage returns up to limit identities starting at cursor ("" for the first page).
	// Scan order is defined by the backend and is stable for an unchanged store.
	ScanPage(ctx context.Context, cursor string, limit int) (*IdentityPage, error)
	// Get retrieves an identity by UUID, returns nil if not found
	Get(ctx context.Context, uuid string) (*StoredIdentity, error)
}

// IdentityWriter provides write access to the identity store
type IdentityWriter interface {
	IdentityReader

	// Insert appends a new identity. It does not check for existing identities of the same person.
	Insert(ctx context.Context, identity *StoredIdentity) error

	// Register attaches registration data and flips IsRegistered. Returns ErrNotFound for unknown UUIDs.
	Register(ctx context.Context, uuid string, reg Registration) (*StoredIdentity, error)
}

// IdentityDeduper is implemented by stores that can insert conditionally on the photo fingerprint.
type IdentityDeduper interface {
	// InsertIfAbsent inserts identity unless an identity with the same Fingerprint exists.
	// It returns the stored identity owning the fingerprint and whether it was inserted.
	InsertIfAbsent(ctx context.Context, identity *StoredIdentity) (*StoredIdentity, bool, error)
}
