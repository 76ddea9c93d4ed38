package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeForeignKeyMissing   = "FOREIGN_KEY_MISSING"
	CodeRoleMismatch        = "ROLE_MISMATCH"
	CodeDateOrderViolation  = "DATE_ORDER_VIOLATION"
	CodeUniquenessViolation = "UNIQUENESS_VIOLATION"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewForeignKeyMissing reports that the entity referenced by slot does not exist.
func NewForeignKeyMissing(slot string) error {
	return NewDomainError(CodeForeignKeyMissing,
		fmt.Sprintf("referenced entity for %s does not exist", slot),
		http.StatusUnprocessableEntity,
		map[string]any{"slot": slot})
}

// NewRoleMismatch reports that the user referenced by slot lacks a permitted role.
func NewRoleMismatch(slot string, required []string, actual string) error {
	return NewDomainError(CodeRoleMismatch,
		fmt.Sprintf("user referenced by %s has role %q", slot, actual),
		http.StatusUnprocessableEntity,
		map[string]any{"slot": slot, "required": required, "actual": actual})
}

// NewDateOrderViolation reports that field precedes start_date.
func NewDateOrderViolation(field string) error {
	return NewDomainError(CodeDateOrderViolation,
		fmt.Sprintf("%s precedes start_date", field),
		http.StatusUnprocessableEntity,
		map[string]any{"field": field})
}

// NewUniquenessViolation reports a storage-level duplicate of a unique key.
func NewUniquenessViolation(entity, key string) error {
	return NewDomainError(CodeUniquenessViolation,
		fmt.Sprintf("%s with this %s already exists", entity, key),
		http.StatusConflict,
		map[string]any{"entity": entity, "key": key})
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
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
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
