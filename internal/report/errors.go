package report

import (
	"errors"
	"net/http"
)

// Kind classifies failures so callers can tell "try again shortly" from
// "this failed".
type Kind string

const (
	KindProvisionFailed Kind = "provision_failed"
	KindAgentBusy       Kind = "agent_busy"
	KindRequestFailed   Kind = "request_failed"
	KindReportFailed    Kind = "report_failed"
	KindTimedOut        Kind = "timed_out"
	KindCancelled       Kind = "cancelled"
)

// Error is a workflow failure surfaced to callers. Detail holds the raw
// upstream body or response for diagnostics.
type Error struct {
	Kind       Kind
	Message    string
	Detail     any
	StatusCode int
	Retryable  bool
	Err        error
}

var (
	ErrProvisionFailed = &Error{Kind: KindProvisionFailed}
	ErrAgentBusy       = &Error{Kind: KindAgentBusy}
	ErrRequestFailed   = &Error{Kind: KindRequestFailed}
	ErrReportFailed    = &Error{Kind: KindReportFailed}
	ErrTimedOut        = &Error{Kind: KindTimedOut}
	ErrCancelled       = &Error{Kind: KindCancelled}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrAgentBusy) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// AsError extracts the workflow error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps err to the status the HTTP surface should answer with.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidSymbol) {
		return http.StatusBadRequest
	}
	e, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindAgentBusy:
		return http.StatusConflict
	case KindTimedOut:
		return http.StatusGatewayTimeout
	case KindReportFailed:
		return http.StatusInternalServerError
	case KindCancelled:
		return 499
	case KindProvisionFailed, KindRequestFailed:
		if e.StatusCode >= 400 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
