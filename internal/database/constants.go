package database

// Scan pagination constants
const (
	// DefaultPageSize is the number of identities fetched per scan page
	DefaultPageSize = 100

	// MaxPageSize caps page sizes requested by API callers
	MaxPageSize = 1000
)

// NormalizeLimit applies the default and maximum page sizes.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
