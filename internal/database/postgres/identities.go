package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/face-roster/internal/database"
)

// Compile-time contract assertions.
var (
	_ database.IdentityWriter  = (*IdentityRepository)(nil)
	_ database.IdentityDeduper = (*IdentityRepository)(nil)
)

const identityColumns = `uuid, photo, fingerprint, first_name, last_name, grade, is_registered, created_at`

// IdentityRepository provides PostgreSQL-backed identity storage.
// Scan order is insertion order; cursors carry the last seen sequence number.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner, extra ...any) (*database.StoredIdentity, error) {
	var (
		identity    database.StoredIdentity
		fingerprint sql.NullString
		firstName   sql.NullString
		lastName    sql.NullString
		grade       sql.NullInt64
	)
	dest := append(extra,
		&identity.UUID,
		&identity.Photo,
		&fingerprint,
		&firstName,
		&lastName,
		&grade,
		&identity.IsRegistered,
		&identity.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	identity.Fingerprint = fingerprint.String
	if firstName.Valid {
		identity.FirstName = &firstName.String
	}
	if lastName.Valid {
		identity.LastName = &lastName.String
	}
	if grade.Valid {
		g := int(grade.Int64)
		identity.Grade = &g
	}
	return &identity, nil
}

// ScanPage returns identities in insertion order after cursor
func (r *IdentityRepository) ScanPage(ctx context.Context, cursor string, limit int) (*database.IdentityPage, error) {
	var after int64
	if cursor != "" {
		n, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, database.StoreError("scan page", fmt.Errorf("invalid cursor %q", cursor))
		}
		after = n
	}
	limit = database.NormalizeLimit(limit)

	query := `SELECT seq, ` + identityColumns + `
		FROM identities
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2`

	// One extra row tells whether another page exists.
	rows, err := r.pool.Query(ctx, query, after, limit+1)
	if err != nil {
		return nil, database.StoreError("scan page", err)
	}
	defer rows.Close()

	page := &database.IdentityPage{}
	var lastSeq int64
	for rows.Next() {
		var seq int64
		identity, err := scanIdentity(rows, &seq)
		if err != nil {
			return nil, database.StoreError("scan identity row", err)
		}
		if len(page.Identities) == limit {
			page.NextCursor = strconv.FormatInt(lastSeq, 10)
			break
		}
		page.Identities = append(page.Identities, *identity)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return nil, database.StoreError("iterate identities", err)
	}
	return page, nil
}

// Get retrieves an identity by UUID, returns nil if not found
func (r *IdentityRepository) Get(ctx context.Context, uuid string) (*database.StoredIdentity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE uuid = $1`

	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, uuid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.StoreError("get identity", err)
	}
	return identity, nil
}

// Insert stores a new identity
func (r *IdentityRepository) Insert(ctx context.Context, identity *database.StoredIdentity) error {
	query := `
		INSERT INTO identities (uuid, photo, fingerprint, is_registered, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		identity.UUID, identity.Photo, identity.Fingerprint, identity.IsRegistered, identity.CreatedAt)
	if err != nil {
		return database.StoreError("insert identity", err)
	}
	return nil
}

// InsertIfAbsent inserts identity unless its fingerprint is already stored
func (r *IdentityRepository) InsertIfAbsent(ctx context.Context, identity *database.StoredIdentity) (*database.StoredIdentity, bool, error) {
	query := `
		INSERT INTO identities (uuid, photo, fingerprint, is_registered, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		identity.UUID, identity.Photo, identity.Fingerprint, identity.IsRegistered, identity.CreatedAt)
	if err != nil {
		return nil, false, database.StoreError("insert identity", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, database.StoreError("insert identity", err)
	}
	if affected == 1 {
		stored := *identity
		return &stored, true, nil
	}

	owner, err := scanIdentity(r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE fingerprint = $1`, identity.Fingerprint))
	if err != nil {
		return nil, false, database.StoreError("get identity by fingerprint", err)
	}
	return owner, false, nil
}

// Register attaches registration data to an identity
func (r *IdentityRepository) Register(ctx context.Context, uuid string, reg database.Registration) (*database.StoredIdentity, error) {
	query := `
		UPDATE identities
		SET first_name = $2, last_name = $3, grade = $4, is_registered = TRUE
		WHERE uuid = $1
		RETURNING ` + identityColumns

	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, uuid, reg.FirstName, reg.LastName, reg.Grade))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.StoreError("register identity", err)
	}
	return identity, nil
}
