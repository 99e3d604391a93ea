package database

import (
	"time"
)

// StoredIdentity represents a known person stored in the identity store
type StoredIdentity struct {
	UUID         string    `json:"uuid"`
	Photo        string    `json:"photo,omitempty"`       // base64 reference photo, set once at creation
	Fingerprint  string    `json:"fingerprint,omitempty"` // hex SHA-256 of the decoded reference photo
	FirstName    *string   `json:"firstName"`
	LastName     *string   `json:"lastName"`
	Grade        *int      `json:"grade"`
	IsRegistered bool      `json:"isRegistered"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IdentityPage is one page of a store scan.
// NextCursor is empty when the scan is exhausted.
type IdentityPage struct {
	Identities []StoredIdentity
	NextCursor string
}

// Registration holds the fields attached to an identity by the registration workflow
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Grade     int    `json:"grade"`
}

// Apply copies the registration onto the identity and marks it registered.
func (r Registration) Apply(identity *StoredIdentity) {
	first, last, grade := r.FirstName, r.LastName, r.Grade
	identity.FirstName = &first
	identity.LastName = &last
	identity.Grade = &grade
	identity.IsRegistered = true
}

// WithoutPhoto returns a copy without the reference photo, for listings.
func (s StoredIdentity) WithoutPhoto() StoredIdentity {
	s.Photo = ""
	return s
}
