package core

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies errors surfaced to API callers.
type FailureKind string

const (
	FailureAuthentication    FailureKind = "AUTHENTICATION_FAILURE"
	FailureDuplicateUsername FailureKind = "DUPLICATE_USERNAME"
	FailureToken             FailureKind = "TOKEN_FAILURE"
	FailurePrincipalNotFound FailureKind = "PRINCIPAL_NOT_FOUND"
	FailureValidation        FailureKind = "VALIDATION_ERROR"
	FailureForbidden         FailureKind = "FORBIDDEN"
)

// FailureReason refines a kind: why credentials or a token were rejected.
type FailureReason string

const (
	ReasonNotFound    FailureReason = "NOT_FOUND"
	ReasonBadPassword FailureReason = "BAD_PASSWORD"

	ReasonMalformed        FailureReason = "MALFORMED"
	ReasonSignatureInvalid FailureReason = "SIGNATURE_INVALID"
	ReasonExpired          FailureReason = "EXPIRED"
	// ReasonReused marks a refresh token presented after it was already rotated.
	ReasonReused FailureReason = "REUSED"
)

var (
	// ErrAccountNotFound is returned by stores when no principal matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned by stores when a user username collides.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPasswordMismatch is returned by PasswordHasher.Compare on a wrong password.
	ErrPasswordMismatch = errors.New("password does not match")
)

// AuthError is the structured error every service operation fails with.
type AuthError struct {
	Kind    FailureKind
	Reason  FailureReason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += "(" + string(e.Reason) + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Status is the HTTP status this failure maps to.
func (e *AuthError) Status() int {
	switch e.Kind {
	case FailureAuthentication, FailureToken:
		return http.StatusUnauthorized
	case FailureDuplicateUsername:
		return http.StatusConflict
	case FailurePrincipalNotFound:
		return http.StatusNotFound
	case FailureForbidden:
		return http.StatusForbidden
	case FailureValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable text code rendered in error payloads. Authentication
// failures share one code so responses do not reveal which half of the
// credentials was wrong.
func (e *AuthError) Code() string {
	switch e.Kind {
	case FailureAuthentication:
		return "INVALID_CREDENTIALS"
	case FailureToken:
		return "TOKEN_" + string(e.Reason)
	case FailurePrincipalNotFound:
		return "NOT_FOUND"
	default:
		return string(e.Kind)
	}
}

// PublicMessage is the human-readable message safe to return to clients.
func (e *AuthError) PublicMessage() string {
	if e.Kind == FailureAuthentication {
		return "invalid username or password"
	}
	return e.Message
}

func NewAuthenticationFailure(reason FailureReason) *AuthError {
	return &AuthError{Kind: FailureAuthentication, Reason: reason, Message: "authentication failed"}
}

func NewDuplicateUsername(username string) *AuthError {
	return &AuthError{Kind: FailureDuplicateUsername, Message: fmt.Sprintf("username %q is already taken", username)}
}

func NewTokenFailure(reason FailureReason, err error) *AuthError {
	var msg string
	switch reason {
	case ReasonExpired:
		msg = "token has expired"
	case ReasonSignatureInvalid:
		msg = "token signature is invalid"
	case ReasonReused:
		msg = "refresh token has already been used"
	default:
		msg = "token is malformed"
	}
	return &AuthError{Kind: FailureToken, Reason: reason, Message: msg, Err: err}
}

func NewPrincipalNotFound(username string) *AuthError {
	return &AuthError{Kind: FailurePrincipalNotFound, Message: fmt.Sprintf("account %q was not found", username)}
}

func NewValidationFailure(msg string) *AuthError {
	return &AuthError{Kind: FailureValidation, Message: msg}
}

func NewForbidden(msg string) *AuthError {
	return &AuthError{Kind: FailureForbidden, Message: msg}
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// ReasonOf returns the reason of an AuthError, or "" for other errors.
func ReasonOf(err error) FailureReason {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
