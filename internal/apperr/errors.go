// Package apperr defines the error taxonomy returned by the contract and
// auction services. Every error carries a stable code and a retryable flag so
// callers can decide between surfacing the failure and trying again.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeInvalidCredential   Code = "INVALID_CREDENTIAL"
	CodeValidation          Code = "VALIDATION_FAILED"
	CodeGenerationExhausted Code = "GENERATION_EXHAUSTED"
	CodeResourceBusy        Code = "RESOURCE_BUSY"
	CodeConflict            Code = "CONFLICT"
	CodeInternal            Code = "INTERNAL"
)

// Error is a structured application error.
type Error struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	cause     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s %s not found", entity, id),
		Metadata: map[string]interface{}{"entity": entity, "id": id},
	}
}

// InvalidState reports an operation attempted in the wrong status.
func InvalidState(entity, id string, expected []string, actual string) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("%s %s is %s, expected one of %v", entity, id, actual, expected),
		Metadata: map[string]interface{}{
			"entity":   entity,
			"id":       id,
			"expected": expected,
			"actual":   actual,
		},
	}
}

// InvalidCredential never says which part of the check failed.
func InvalidCredential() *Error {
	return &Error{
		Code:    CodeInvalidCredential,
		Message: "invalid credential",
	}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

func GenerationExhausted(kind string, attempts int) *Error {
	return &Error{
		Code:      CodeGenerationExhausted,
		Message:   fmt.Sprintf("could not generate a unique %s", kind),
		Details:   fmt.Sprintf("attempts: %d", attempts),
		Retryable: true,
		Metadata:  map[string]interface{}{"kind": kind, "attempts": attempts},
	}
}

func ResourceBusy(resource string, cause error) *Error {
	e := &Error{
		Code:      CodeResourceBusy,
		Message:   fmt.Sprintf("%s is busy, retry later", resource),
		Retryable: true,
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func Conflict(resource string, cause error) *Error {
	e := &Error{
		Code:      CodeConflict,
		Message:   fmt.Sprintf("concurrent write on %s, retry", resource),
		Retryable: true,
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
