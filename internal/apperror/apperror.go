// Package apperror defines the error kinds shared by the service layer and
// the HTTP boundary. Domain operations return *Error values; handlers map the
// Kind to a status code in one place.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Gateway
	Persistence
	Unauthorized
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Gateway:
		return "gateway"
	case Persistence:
		return "persistence"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to return to clients for
// Validation, NotFound, Conflict, Unauthorized and Forbidden kinds. For the
// remaining kinds the boundary replaces it with a generic text.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Message so sentinel values declared with New can be
// compared with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

func Invalid(msg string) *Error     { return New(Validation, msg) }
func Missing(msg string) *Error     { return New(NotFound, msg) }
func Conflicting(msg string) *Error { return New(Conflict, msg) }

func Storage(op string, err error) *Error {
	return Wrap(Persistence, op, err)
}
func Upstream(op string, err error) *Error {
	return Wrap(Gateway, op, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the response status code.
func HTTPStatus(k Kind) int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Gateway:
		return http.StatusBadGateway
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether the message may be shown to clients verbatim.
func (k Kind) Public() bool {
	switch k {
	case Validation, NotFound, Conflict, Unauthorized, Forbidden:
		return true
	}
	return false
}
