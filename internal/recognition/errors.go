package recognition

import (
	"errors"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/oracle"
	"github.com/kozaktomas/face-roster/internal/photo"
)

// ErrInternal marks failures that are neither the caller's nor an external service's fault.
var ErrInternal = errors.New("internal error")

// Error kinds reported to callers.
const (
	KindDecode   = "decode"
	KindOracle   = "oracle"
	KindStore    = "store"
	KindInternal = "internal"
)

// ErrorKind classifies err by the sentinel it carries.
// Store errors take precedence so that a corrupt stored photo is not blamed on the caller.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, database.ErrStore):
		return KindStore
	case errors.Is(err, oracle.ErrOracle):
		return KindOracle
	case errors.Is(err, photo.ErrDecode):
		return KindDecode
	default:
		return KindInternal
	}
}
