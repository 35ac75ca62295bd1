package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDecode marks a response whose body did not have the expected shape
var ErrDecode = errors.New("malformed backend response")

// ErrMissingUserID is returned when an operation needs a user id and none was given
var ErrMissingUserID = errors.New("user id is required")

// StatusError is returned for any non-2xx backend response
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func decodeError(err error) error {
	return fmt.Errorf("%w: %v", ErrDecode, err)
}
