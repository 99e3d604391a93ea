package recognition

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/oracle"
	"github.com/kozaktomas/face-roster/internal/photo"
)

// Matcher finds the stored identity whose reference photo shows the same person.
type Matcher struct {
	store    database.IdentityReader
	oracle   oracle.Oracle
	pageSize int
}

// NewMatcher creates a matcher scanning the store in pages of pageSize.
func NewMatcher(store database.IdentityReader, o oracle.Oracle, pageSize int) *Matcher {
	if pageSize <= 0 {
		pageSize = database.DefaultPageSize
	}
	return &Matcher{store: store, oracle: o, pageSize: pageSize}
}

// Find compares submitted against every stored photo in scan order and returns the first
// identity the oracle reports as a match. It returns nil, nil only after the whole store was
// scanned without a match. Any failure aborts the scan.
func (m *Matcher) Find(ctx context.Context, submitted []byte) (*database.StoredIdentity, error) {
	for identity, err := range database.ScanAll(ctx, m.store, m.pageSize) {
		if err != nil {
			return nil, err
		}

		reference, err := photo.Decode(identity.Photo)
		if err != nil {
			return nil, database.StoreError(fmt.Sprintf("decode stored photo of %s", identity.UUID), err)
		}

		matched, err := m.oracle.Matches(ctx, submitted, reference)
		if err != nil {
			return nil, fmt.Errorf("compare with %s: %w", identity.UUID, err)
		}
		if matched {
			return &identity, nil
		}
	}
	return nil, nil
}
