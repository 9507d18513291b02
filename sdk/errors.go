package sdk

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AuthError.
type ErrorCode string

const (
	CodeInvalidEmail            ErrorCode = "invalid-email"
	CodeWrongPassword           ErrorCode = "wrong-password"
	CodeUserNotFound            ErrorCode = "user-not-found"
	CodeEmailAlreadyInUse       ErrorCode = "email-already-in-use"
	CodeWeakPassword            ErrorCode = "weak-password"
	CodeProviderAlreadyLinked   ErrorCode = "provider-already-linked"
	CodeNoSuchProvider          ErrorCode = "no-such-provider"
	CodeCredentialAlreadyInUse  ErrorCode = "credential-already-in-use"
	CodeInvalidCredential       ErrorCode = "invalid-credential"
	CodeInvalidCustomToken      ErrorCode = "invalid-custom-token"
	CodeInvalidVerificationCode ErrorCode = "invalid-verification-code"
	CodeInvalidActionCode       ErrorCode = "invalid-action-code"
	CodeExpiredActionCode       ErrorCode = "expired-action-code"
	CodeTooManyRequests         ErrorCode = "too-many-requests"
	CodeUserDisabled            ErrorCode = "user-disabled"
	CodeOperationNotAllowed     ErrorCode = "operation-not-allowed"
	CodeRequiresRecentLogin     ErrorCode = "requires-recent-login"
	CodeInternalError           ErrorCode = "internal-error"
)

// AuthError is the error type reported by SDK callbacks.
type AuthError struct {
	Code    ErrorCode
	Message string
	// Field names the offending input, when there is one.
	Field string

	cause error
}

// NewAuthError builds an AuthError with a formatted message.
func NewAuthError(code ErrorCode, format string, args ...any) *AuthError {
	return &AuthError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapAuthError builds an internal-error that keeps cause for errors.Is/As.
func WrapAuthError(cause error, format string, args ...any) *AuthError {
	return &AuthError{Code: CodeInternalError, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithField returns a copy of e naming the offending field.
func (e *AuthError) WithField(field string) *AuthError {
	c := *e
	c.Field = field
	return &c
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.cause
}

// Is matches any *AuthError with the same code, so callers can compare
// against the sentinels below.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidEmail            = &AuthError{Code: CodeInvalidEmail, Message: "the email address is badly formatted"}
	ErrWrongPassword           = &AuthError{Code: CodeWrongPassword, Message: "the password is invalid"}
	ErrUserNotFound            = &AuthError{Code: CodeUserNotFound, Message: "there is no user record for this identifier"}
	ErrEmailAlreadyInUse       = &AuthError{Code: CodeEmailAlreadyInUse, Message: "the email address is already in use by another account"}
	ErrWeakPassword            = &AuthError{Code: CodeWeakPassword, Message: "the password is too weak"}
	ErrProviderAlreadyLinked   = &AuthError{Code: CodeProviderAlreadyLinked, Message: "the provider is already linked to this user"}
	ErrNoSuchProvider          = &AuthError{Code: CodeNoSuchProvider, Message: "the user is not linked to this provider"}
	ErrCredentialAlreadyInUse  = &AuthError{Code: CodeCredentialAlreadyInUse, Message: "the credential is already associated with a different user"}
	ErrInvalidCredential       = &AuthError{Code: CodeInvalidCredential, Message: "the supplied credential is malformed or has expired"}
	ErrInvalidCustomToken      = &AuthError{Code: CodeInvalidCustomToken, Message: "the custom token is invalid"}
	ErrInvalidVerificationCode = &AuthError{Code: CodeInvalidVerificationCode, Message: "the verification code is invalid"}
	ErrInvalidActionCode       = &AuthError{Code: CodeInvalidActionCode, Message: "the action code is invalid"}
	ErrExpiredActionCode       = &AuthError{Code: CodeExpiredActionCode, Message: "the action code has expired"}
	ErrTooManyRequests         = &AuthError{Code: CodeTooManyRequests, Message: "too many requests, try again later"}
	ErrUserDisabled            = &AuthError{Code: CodeUserDisabled, Message: "the user account has been disabled"}
	ErrOperationNotAllowed     = &AuthError{Code: CodeOperationNotAllowed, Message: "the operation is not allowed"}
	ErrRequiresRecentLogin     = &AuthError{Code: CodeRequiresRecentLogin, Message: "the operation requires a recent sign-in"}
	ErrInternal                = &AuthError{Code: CodeInternalError, Message: "an internal error occurred"}
)
