package raworc

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the agent service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("raworc %s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("raworc %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Body returns the upstream body carried by err, or "".
func Body(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsAPIError reports whether err came back from the service, as opposed to a
// transport failure.
func IsAPIError(err error) bool {
	return StatusCode(err) != 0
}
