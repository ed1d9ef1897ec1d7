package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kind codes. Every service failure is one of these; the HTTP layer
// maps them to status codes while keeping the {fail, message} body contract.
const (
	CodeMissingInput      = "MISSING_INPUT"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeInvalidState      = "INVALID_STATE"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// FieldError pairs a failing field with its human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Fields     []FieldError
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Messages returns one message per failing field, or the single top-level
// message when no field detail exists.
func (e *DomainError) Messages() []string {
	if len(e.Fields) == 0 {
		return []string{e.Message}
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

func NewMissingInput(message string) error {
	return &DomainError{Code: CodeMissingInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewNotFound(message string) error {
	return &DomainError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func NewInvalidCredential(message string) error {
	return &DomainError{Code: CodeInvalidCredential, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewInvalidState(message string) error {
	return &DomainError{Code: CodeInvalidState, Message: message, HTTPStatus: http.StatusConflict}
}

func NewValidationFailed(fields []FieldError) error {
	return &DomainError{
		Code:       CodeValidationFailed,
		Message:    "validation failed",
		HTTPStatus: http.StatusUnprocessableEntity,
		Fields:     fields,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err is a DomainError with the given code.
func IsKind(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
