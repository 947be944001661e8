// internal/graph/errors.go
package graph

import (
	"errors"
	"log"

	"github.com/gurkanbulca/tasknest/internal/service"
)

// Error codes reported in extensions.code.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver error carrying a machine-readable code.
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// toGraphQLError hides infrastructure failures behind a generic message and
// passes not-found and validation failures through to the caller.
func toGraphQLError(op string, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return &Error{Message: "Task not found", Code: CodeNotFound}
	case errors.As(err, &verr):
		return &Error{Message: verr.Error(), Code: CodeBadUserInput}
	case errors.Is(err, service.ErrMissingOwner):
		return &Error{Message: "Missing caller identity", Code: CodeUnauthenticated}
	default:
		log.Printf("[ERROR] %s: %v", op, err)
		return &Error{Message: "Failed to " + op, Code: CodeInternal}
	}
}
