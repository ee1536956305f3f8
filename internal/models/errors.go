package models

import (
	"fmt"
	"sort"
)

// AppError represents a custom application error.
type AppError struct {
	Code    string
	Message string
	// Fields holds server-reported field-level validation errors keyed by
	// field name. When present these take precedence over Message for
	// user-facing rendering.
	Fields map[string][]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to surface to the user: the first field-level
// error when any exist, otherwise the generic message.
func (e *AppError) UserMessage() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if len(e.Fields[k]) > 0 {
				return e.Fields[k][0]
			}
		}
	}
	return e.Message
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// NewRequestError wraps a transport-level failure (DNS, connect, timeout,
// undecodable body). These never carry server intent.
func NewRequestError(err error) *AppError {
	return &AppError{
		Code:    "REQUEST_FAILED",
		Message: "Request failed",
		Err:     err,
	}
}

// NewServerError represents a response the server produced on purpose:
// a non-2xx status or a 2xx body with status != success.
func NewServerError(message string, fields map[string][]string) *AppError {
	if message == "" {
		message = "The server rejected the request"
	}
	return &AppError{
		Code:    "SERVER_REJECTED",
		Message: message,
		Fields:  fields,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal error",
		Err:     err,
	}
}
