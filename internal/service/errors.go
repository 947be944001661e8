// internal/service/errors.go
package service

import "errors"

var (
	// ErrTaskNotFound means the task does not exist or is owned by someone else.
	ErrTaskNotFound = errors.New("task not found")
	// ErrMissingOwner means the request carried no caller identity.
	ErrMissingOwner = errors.New("missing owner identity")
	// ErrNoSearchIndex is returned by operations that need the search index
	// when none is configured.
	ErrNoSearchIndex = errors.New("search index not configured")
)

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
