// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/database/memory"
)

// MockIdentityStore is a mock implementation of database.IdentityWriter.
// It does not implement database.IdentityDeduper, so callers fall back to plain inserts.
type MockIdentityStore struct {
	mu    sync.Mutex
	store *memory.Store

	// Error injection
	ScanPageError      error
	ScanPageErrorAfter int // number of successful pages before ScanPageError is returned
	GetError           error
	InsertError        error
	RegisterError      error

	// Call tracking
	scanPageCalls int
	insertCalls   int
	registerCalls int
}

var _ database.IdentityWriter = (*MockIdentityStore)(nil)

// NewMockIdentityStore creates an empty mock store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{store: memory.NewStore()}
}

// AddIdentity seeds the mock store without counting as an insert
func (m *MockIdentityStore) AddIdentity(identity database.StoredIdentity) {
	_ = m.store.Insert(context.Background(), &identity)
}

// ScanPage returns a page from the underlying store unless an error is injected
func (m *MockIdentityStore) ScanPage(ctx context.Context, cursor string, limit int) (*database.IdentityPage, error) {
	m.mu.Lock()
	call := m.scanPageCalls
	m.scanPageCalls++
	m.mu.Unlock()

	if m.ScanPageError != nil && call >= m.ScanPageErrorAfter {
		return nil, m.ScanPageError
	}
	return m.store.ScanPage(ctx, cursor, limit)
}

// Get retrieves an identity by UUID
func (m *MockIdentityStore) Get(ctx context.Context, uuid string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.store.Get(ctx, uuid)
}

// Insert stores a new identity
func (m *MockIdentityStore) Insert(ctx context.Context, identity *database.StoredIdentity) error {
	m.mu.Lock()
	m.insertCalls++
	m.mu.Unlock()

	if m.InsertError != nil {
		return m.InsertError
	}
	return m.store.Insert(ctx, identity)
}

// Register marks an identity as registered
func (m *MockIdentityStore) Register(ctx context.Context, uuid string, reg database.Registration) (*database.StoredIdentity, error) {
	m.mu.Lock()
	m.registerCalls++
	m.mu.Unlock()

	if m.RegisterError != nil {
		return nil, m.RegisterError
	}
	return m.store.Register(ctx, uuid, reg)
}

// Len returns the number of stored identities
func (m *MockIdentityStore) Len() int {
	return m.store.Len()
}

// ScanPageCount returns the number of ScanPage calls
func (m *MockIdentityStore) ScanPageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanPageCalls
}

// InsertCount returns the number of Insert calls
func (m *MockIdentityStore) InsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// RegisterCount returns the number of Register calls
func (m *MockIdentityStore) RegisterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerCalls
}
