// Package registry persists per-profile operation bindings and keeps
// them reconciled against the live API description.
package registry

import (
	"errors"
	"time"
)

// ErrNotFound is returned for a (profile, operation, replica) triple that
// does not exist. The boundary surfaces it as a visibility denial.
var ErrNotFound = errors.New("profile operation not found")

// Entry is one saved binding of an operation to a test configuration,
// keyed by (ProfileID, OperationID, ReplicaID).
type Entry struct {
	ProfileID   int64
	OperationID string
	ReplicaID   int
	URLPath     string // path template; resolved against the configuration at read time
	Method      string
	JSONBody    string
	Order       int
	Remark      string
	IsDeleted   bool
	SavedAt     time.Time
}
