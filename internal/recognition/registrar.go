package recognition

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/photo"
)

// Registrar creates identities for people seen for the first time.
type Registrar struct {
	store database.IdentityWriter
	newID func() string
	now   func() time.Time
}

// NewRegistrar creates a registrar that assigns random UUIDv4 identifiers.
func NewRegistrar(store database.IdentityWriter) *Registrar {
	return &Registrar{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Ensure returns match unchanged when present. Otherwise it stores a new unregistered identity
// for submitted and reports created=true. Stores implementing database.IdentityDeduper insert
// conditionally on the photo fingerprint, and the existing owner is returned when another
// request stored the same photo first.
func (r *Registrar) Ensure(ctx context.Context, submitted []byte, match *database.StoredIdentity) (*database.StoredIdentity, bool, error) {
	if match != nil {
		return match, false, nil
	}

	identity := &database.StoredIdentity{
		UUID:         r.newID(),
		Photo:        photo.Encode(submitted),
		Fingerprint:  photo.Fingerprint(submitted),
		IsRegistered: false,
		CreatedAt:    r.now().UTC(),
	}

	if deduper, ok := r.store.(database.IdentityDeduper); ok {
		stored, inserted, err := deduper.InsertIfAbsent(ctx, identity)
		if err != nil {
			return nil, false, database.StoreError("register new identity", err)
		}
		return stored, inserted, nil
	}

	if err := r.store.Insert(ctx, identity); err != nil {
		return nil, false, database.StoreError("register new identity", err)
	}
	return identity, true, nil
}
