package gateway

import (
	"errors"
	"fmt"
)

// ErrRequestFailed is the single failure class the gateway surfaces: transport
// errors and non-2xx responses alike.
var ErrRequestFailed = errors.New("request failed")

// RequestError describes a failed backend call.
type RequestError struct {
	Method string
	Path   string
	Status int // 0 when no response arrived
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %s: status %d", e.Method, e.Path, ErrRequestFailed, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, ErrRequestFailed, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, ErrRequestFailed)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Status == 401
}
