package page

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel for expected route and entity misses. Handlers
// map it to a 404; it is never an infrastructure failure.
var ErrNotFound = errors.New("not found")

// NotFoundError carries the context of a failed resolution while remaining
// errors.Is-compatible with ErrNotFound.
type NotFoundError struct {
	TenantID string
	Path     string
	Reason   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tenant %s: path %q not found: %s", e.TenantID, e.Path, e.Reason)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for the given path.
func NotFound(tenantID, path, reason string) error {
	return &NotFoundError{TenantID: tenantID, Path: path, Reason: reason}
}
