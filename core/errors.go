package core

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("request timed out")
	ErrClosed             = errors.New("controller closed")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client-side error raised before any network call.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldErrors maps field names to their error messages.
func (err ValidationError) FieldErrors() map[string]string {
	flds := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	Status int
	Body   string
}

func (err HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", err.Status, err.Body)
}

// ParseError is returned when the backend answers with a body that is not valid JSON.
type ParseError struct {
	Err  error
	Body string
}

func (err ParseError) Error() string {
	if err.Err == nil {
		return "invalid JSON response"
	}
	return "invalid JSON response: " + err.Err.Error()
}

func (err ParseError) Unwrap() error { return err.Err }

// Kind classifies errors for the UI.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNetwork
	KindHTTP
	KindParse
	KindTimeout
	KindCanceled
	KindClosed
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindValidation: "validation",
	KindNetwork:    "network_unavailable",
	KindHTTP:       "http",
	KindParse:      "parse",
	KindTimeout:    "timeout",
	KindCanceled:   "canceled",
	KindClosed:     "closed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// KindOf returns the Kind of err, looking through wrapped errors.
func KindOf(err error) Kind {
	var (
		vErr *ValidationError
		hErr *HTTPError
		pErr *ParseError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &vErr):
		return KindValidation
	case errors.Is(err, ErrNetworkUnavailable):
		return KindNetwork
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &hErr):
		return KindHTTP
	case errors.As(err, &pErr):
		return KindParse
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrClosed):
		return KindClosed
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether the UI should offer a retry affordance for err
// (as opposed to an inline validation message).
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindHTTP, KindParse, KindTimeout, KindUnknown:
		return err != nil
	default:
		return false
	}
}
