package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-roster/internal/database"
)

// Compile-time contract assertions.
var (
	_ database.IdentityWriter  = (*IdentityRepository)(nil)
	_ database.IdentityDeduper = (*IdentityRepository)(nil)
)

const erDupEntry = 1062

const identityColumns = `uuid, photo, fingerprint, first_name, last_name, grade, is_registered, created_at`

// IdentityRepository stores identities in MariaDB, scanned in AUTO_INCREMENT order.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new MariaDB identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func scanIdentity(row interface{ Scan(...any) error }, extra ...any) (*database.StoredIdentity, error) {
	var (
		identity    database.StoredIdentity
		fingerprint sql.NullString
		firstName   sql.NullString
		lastName    sql.NullString
		grade       sql.NullInt64
	)
	dest := append(extra,
		&identity.UUID, &identity.Photo, &fingerprint, &firstName, &lastName, &grade,
		&identity.IsRegistered, &identity.CreatedAt,
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

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ScanPage returns identities after cursor
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

	query := `SELECT seq, ` + identityColumns + ` FROM identities WHERE seq > ? ORDER BY seq LIMIT ?`
	rows, err := r.pool.db.QueryContext(ctx, query, after, limit+1)
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
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE uuid = ?`, uuid)
	identity, err := scanIdentity(row)
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
	query := `INSERT INTO identities (uuid, photo, fingerprint, is_registered, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query,
		identity.UUID, identity.Photo, nullIfEmpty(identity.Fingerprint), identity.IsRegistered, identity.CreatedAt)
	if err != nil {
		return database.StoreError("insert identity", err)
	}
	return nil
}

// InsertIfAbsent relies on the unique fingerprint key. A duplicate key error is resolved by looking up
// the fingerprint owner; when there is none the conflict was on the uuid and is reported as a store error.
func (r *IdentityRepository) InsertIfAbsent(ctx context.Context, identity *database.StoredIdentity) (*database.StoredIdentity, bool, error) {
	if identity.Fingerprint == "" {
		if err := r.Insert(ctx, identity); err != nil {
			return nil, false, err
		}
		stored := *identity
		return &stored, true, nil
	}

	query := `INSERT INTO identities (uuid, photo, fingerprint, is_registered, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query,
		identity.UUID, identity.Photo, identity.Fingerprint, identity.IsRegistered, identity.CreatedAt)
	if err == nil {
		stored := *identity
		return &stored, true, nil
	}
	if !isDuplicateKey(err) {
		return nil, false, database.StoreError("insert identity", err)
	}

	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE fingerprint = ?`, identity.Fingerprint)
	owner, lookupErr := scanIdentity(row)
	if errors.Is(lookupErr, sql.ErrNoRows) {
		return nil, false, database.StoreError("insert identity", err)
	}
	if lookupErr != nil {
		return nil, false, database.StoreError("get identity by fingerprint", lookupErr)
	}
	return owner, false, nil
}

// isDuplicateKey reports a MariaDB ER_DUP_ENTRY error.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry
}

// Register attaches registration data to an identity
func (r *IdentityRepository) Register(ctx context.Context, uuid string, reg database.Registration) (*database.StoredIdentity, error) {
	// Check existence first, RowsAffected is 0 when the row is unchanged
	existing, err := r.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, database.ErrNotFound
	}

	query := `UPDATE identities SET first_name = ?, last_name = ?, grade = ?, is_registered = TRUE WHERE uuid = ?`
	if _, err := r.pool.db.ExecContext(ctx, query, reg.FirstName, reg.LastName, reg.Grade, uuid); err != nil {
		return nil, database.StoreError("register identity", err)
	}

	reg.Apply(existing)
	return existing, nil
}
