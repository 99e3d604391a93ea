// Package memory provides an in-memory identity store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/kozaktomas/face-roster/internal/database"
)

// Compile-time contract assertions.
var (
	_ database.IdentityWriter  = (*Store)(nil)
	_ database.IdentityDeduper = (*Store)(nil)
)

// Store keeps identities in insertion order. Cursors are decimal offsets.
type Store struct {
	mu            sync.RWMutex
	identities    []database.StoredIdentity
	byUUID        map[string]int
	byFingerprint map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byUUID:        make(map[string]int),
		byFingerprint: make(map[string]int),
	}
}

// ScanPage implements database.IdentityReader.
func (s *Store) ScanPage(ctx context.Context, cursor string, limit int) (*database.IdentityPage, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, database.StoreError("scan page", fmt.Errorf("invalid cursor %q", cursor))
		}
		offset = n
	}
	limit = database.NormalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := &database.IdentityPage{}
	if offset >= len(s.identities) {
		return page, nil
	}

	end := min(offset+limit, len(s.identities))
	page.Identities = make([]database.StoredIdentity, 0, end-offset)
	for _, identity := range s.identities[offset:end] {
		page.Identities = append(page.Identities, clone(identity))
	}
	if end < len(s.identities) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// Get implements database.IdentityReader.
func (s *Store) Get(ctx context.Context, uuid string) (*database.StoredIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byUUID[uuid]
	if !ok {
		return nil, nil
	}
	identity := clone(s.identities[idx])
	return &identity, nil
}

// Insert implements database.IdentityWriter.
func (s *Store) Insert(ctx context.Context, identity *database.StoredIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(identity)
}

func (s *Store) insertLocked(identity *database.StoredIdentity) error {
	if identity.UUID == "" {
		return database.StoreError("insert identity", fmt.Errorf("uuid is required"))
	}
	if _, exists := s.byUUID[identity.UUID]; exists {
		return database.StoreError("insert identity", fmt.Errorf("uuid %s already exists", identity.UUID))
	}

	s.identities = append(s.identities, clone(*identity))
	idx := len(s.identities) - 1
	s.byUUID[identity.UUID] = idx
	if identity.Fingerprint != "" {
		if _, taken := s.byFingerprint[identity.Fingerprint]; !taken {
			s.byFingerprint[identity.Fingerprint] = idx
		}
	}
	return nil
}

// InsertIfAbsent implements database.IdentityDeduper.
func (s *Store) InsertIfAbsent(ctx context.Context, identity *database.StoredIdentity) (*database.StoredIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity.Fingerprint != "" {
		if idx, ok := s.byFingerprint[identity.Fingerprint]; ok {
			existing := clone(s.identities[idx])
			return &existing, false, nil
		}
	}
	if err := s.insertLocked(identity); err != nil {
		return nil, false, err
	}
	stored := clone(*identity)
	return &stored, true, nil
}

// Register implements database.IdentityWriter.
func (s *Store) Register(ctx context.Context, uuid string, reg database.Registration) (*database.StoredIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byUUID[uuid]
	if !ok {
		return nil, database.ErrNotFound
	}
	reg.Apply(&s.identities[idx])
	identity := clone(s.identities[idx])
	return &identity, nil
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// clone copies an identity including its optional fields.
func clone(in database.StoredIdentity) database.StoredIdentity {
	out := in
	if in.FirstName != nil {
		v := *in.FirstName
		out.FirstName = &v
	}
	if in.LastName != nil {
		v := *in.LastName
		out.LastName = &v
	}
	if in.Grade != nil {
		v := *in.Grade
		out.Grade = &v
	}
	return out
}
