package appointments

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an appointment does not exist in the tenant.
// Cross-tenant lookups return the same error so existence never leaks.
var ErrNotFound = errors.New("appointments: not found")

// ConflictError reports an overlapping booking for a doctor or patient,
// carrying enough detail for the caller to retry with a different slot.
type ConflictError struct {
	Resource ResourceKind
	Start    time.Time
	End      time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointments: %s unavailable between %s and %s",
		e.Resource, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// InvalidTransitionError reports an operation not legal from the current status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("appointments: illegal transition %s -> %s", e.From, e.To)
}
