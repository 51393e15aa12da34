package service

import (
	"errors"
	"fmt"
)

// AuthErrorCode classifies why a token was not accepted
type AuthErrorCode string

const (
	CodeInvalidToken AuthErrorCode = "INVALID_TOKEN"
	CodeWrongScope   AuthErrorCode = "WRONG_SCOPE"
	CodeRevoked      AuthErrorCode = "TOKEN_REVOKED"
	CodeBanned       AuthErrorCode = "USER_BANNED"
	CodeForbidden    AuthErrorCode = "FORBIDDEN"
)

// AuthError is returned by token resolution and the gate
type AuthError struct {
	Code AuthErrorCode
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches AuthErrors by code so errors.Is(err, ErrRevoked) works on wrapped values
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

var (
	ErrInvalidToken = &AuthError{Code: CodeInvalidToken}
	ErrWrongScope   = &AuthError{Code: CodeWrongScope}
	ErrRevoked      = &AuthError{Code: CodeRevoked}
	ErrBanned       = &AuthError{Code: CodeBanned}
	ErrForbidden    = &AuthError{Code: CodeForbidden}
)

func authError(code AuthErrorCode, cause error) *AuthError {
	return &AuthError{Code: code, Err: cause}
}

// Account and administration errors
var (
	ErrUnusableUser       = errors.New("user has no usable subject")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserInactive       = errors.New("user is inactive")
	ErrVerificationFailed = errors.New("verification error")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleUnchanged      = errors.New("role is already set")
	ErrAlreadyBanned      = errors.New("user is already banned")
	ErrAlreadyActive      = errors.New("user is already active")
)
