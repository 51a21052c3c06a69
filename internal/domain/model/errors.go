package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel kinds. Typed errors below match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrTransport  = errors.New("transport failed")
)

// ValidationError reports malformed input or a malformed upstream payload.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// maxBodySnippet bounds the upstream body kept on a TransportError.
const maxBodySnippet = 512

// TransportError reports a network failure or a non-2xx upstream response.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Cause      error
}

// NewStatusError builds a TransportError for a non-2xx response, trimming body
// on a character boundary.
func NewStatusError(op string, status int, body []byte) *TransportError {
	if len(body) > maxBodySnippet {
		cut := maxBodySnippet
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &TransportError{Op: op, StatusCode: status, Body: strings.ToValidUTF8(string(body), "\uFFFD")}
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	default:
		return e.Op + ": transport failed"
	}
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error { return e.Cause }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// IsNotFound reports whether err is a 404 from upstream.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == 404
}
