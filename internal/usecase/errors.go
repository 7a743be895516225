package usecase

import (
	"errors"
	"strings"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeLeadNotFound       = "LEAD_NOT_FOUND"
	CodeSlotTaken          = "SLOT_TAKEN"
	CodeActiveLeadExists   = "ACTIVE_LEAD_EXISTS"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeSignupDisabled     = "SIGNUP_DISABLED"
	CodeStorage            = "STORAGE_ERROR"
)

// DomainError is a business rule failure the caller can act on.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ErrorCode returns the DomainError or TechnicalError code carried by err, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// TechnicalError wraps infrastructure failures (storage, rendering).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func storageError(err error) error {
	return &TechnicalError{Code: CodeStorage, Message: "storage failure", Err: err}
}

func validationFailed(errs []ValidationError) error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: "validation failed: " + strings.Join(parts, "; "),
	}
}

var (
	errUnauthenticated = &DomainError{Code: CodeUnauthenticated, Message: "authentication required"}
	// Same message for unknown email and wrong password.
	errInvalidCredentials = &DomainError{Code: CodeInvalidCredentials, Message: "invalid credentials"}
)

// ErrUnauthenticated is returned by operations that need a signed-in operator.
func ErrUnauthenticated() error { return errUnauthenticated }
