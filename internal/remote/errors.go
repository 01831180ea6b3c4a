package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMisconfigured means the endpoint answered 404 to a load: the base URL
	// is wrong. Retrying cannot fix it.
	ErrMisconfigured = errors.New("backend endpoint not found, check the API URL")

	// ErrConnectivity means the backend could not be reached, either after the
	// load retries were exhausted or on a (never retried) mutation.
	ErrConnectivity = errors.New("cloud connection issue")

	// ErrMalformedResponse means a 2xx load response was not a JSON array.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string // backend's {"error": ...} text when present
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsNotFound reports whether err carries an HTTP 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
