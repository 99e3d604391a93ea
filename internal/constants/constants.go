// Package constants provides shared constants used across the codebase.
package constants

import "time"

// HTTP limits
const (
	// MaxRequestBodySize caps identification requests. Rekognition accepts images up to 5 MB,
	// which is about 6.7 MB once base64 encoded.
	MaxRequestBodySize = 8 << 20

	// MaxRegistrationBodySize caps registration requests, which carry only names and a grade
	MaxRegistrationBodySize = 64 << 10

	// RequestTimeout bounds a whole identification including the full store scan
	RequestTimeout = 2 * time.Minute

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown
	ShutdownTimeout = 30 * time.Second
)

// Batch constants
const (
	// DefaultBatchWorkers is the default number of photos identified in parallel by the batch command.
	// Parallel runs may register the same unseen person twice on stores without fingerprint dedup.
	DefaultBatchWorkers = 1
)

// PhotoExtensions lists file extensions picked up by the batch command.
var PhotoExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}
