package api

import (
	"errors"
	"fmt"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response or a response body that does not match
// the expected shape.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

// Detail returns the text worth showing to a user.
func Detail(err error) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Err.Error()
	}
	return err.Error()
}

func malformed(op string, status int, format string, args ...any) error {
	return &ServerError{Op: op, StatusCode: status, Message: "malformed response: " + fmt.Sprintf(format, args...)}
}
