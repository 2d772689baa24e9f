package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by errors returned when the service answers
// with a success status but the body does not hold a usable choice.
var ErrMalformedResponse = errors.New("malformed completion response")

// ServiceError is returned when the completion service answers with a
// non-success HTTP status. Body is the raw response payload.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsServiceError reports whether err carries a *ServiceError and returns it.
func IsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
