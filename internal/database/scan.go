package database

import (
	"context"
	"iter"
)

// ScanAll yields every identity in the store, fetching pages of pageSize until the
// store returns no continuation cursor. Each call starts a fresh scan.
// A failing page yields the error once and ends the sequence; callers must treat an
// interrupted scan as inconclusive.
func ScanAll(ctx context.Context, reader IdentityReader, pageSize int) iter.Seq2[StoredIdentity, error] {
	return func(yield func(StoredIdentity, error) bool) {
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(StoredIdentity{}, StoreError("scan identities", err))
				return
			}

			page, err := reader.ScanPage(ctx, cursor, pageSize)
			if err != nil {
				yield(StoredIdentity{}, StoreError("scan identities", err))
				return
			}

			for _, identity := range page.Identities {
				if !yield(identity, nil) {
					return
				}
			}

			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}
