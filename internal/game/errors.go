package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ctxKey int

const correlationIDKey ctxKey = 0

// WithCorrelationID tags the context with the request's correlation id so
// rejections can be traced back to the triggering client request.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the id set by WithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ValidationError is a rejected request. It never mutates state: the caller's
// request simply did not apply to the current phase of the game.
type ValidationError struct {
	Message       string
	CorrelationID string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a request rejection rather than an
// infrastructure failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// rejectf builds a ValidationError, reports it privately to the offending
// user, and returns it.
func (e *Engine) rejectf(ctx context.Context, userID uuid.UUID, format string, args ...interface{}) error {
	verr := &ValidationError{
		Message:       fmt.Sprintf(format, args...),
		CorrelationID: CorrelationIDFromContext(ctx),
	}
	e.broadcast.EmitToUser(userID, EventError, map[string]interface{}{
		"message":       verr.Message,
		"correlationId": verr.CorrelationID,
	})
	return verr
}
