// Package apperr defines the failures the user service reports to callers.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return "internal"
	}
}

// ViolationSeparator joins field violations into a single message.
const ViolationSeparator = ", "

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string
	Message string
}

// Error is a failure with a kind and a caller-safe message.
type Error struct {
	Kind       Kind
	Message    string
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GRPCCode returns the status code the failure is reported with.
func (e *Error) GRPCCode() codes.Code {
	switch e.Kind {
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindAlreadyExists:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// As reports whether err carries an *Error and returns it.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewErrInvalidArgument joins violation messages into one failure.
func NewErrInvalidArgument(violations []Violation) *Error {
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		messages = append(messages, v.Message)
	}

	return &Error{
		Kind:       KindInvalidArgument,
		Message:    strings.Join(messages, ViolationSeparator),
		Violations: violations,
	}
}

func NewErrUserNotFound(id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("user with ID %d does not exist", id),
	}
}

func NewErrEmailIsTaken(email string) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Message: fmt.Sprintf("a user with email '%s' already exists", email),
	}
}

// NewErrInternalServerError hides err from callers behind a generic message.
func NewErrInternalServerError(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}
