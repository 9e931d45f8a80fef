package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Handlers never inspect messages,
// only kinds.
type Kind int

const (
	KindUnknown Kind = iota
	KindExpired
	KindMalformed
	KindInvalidClaims
	KindRevoked
	KindForbidden
	KindSignin
	KindSignup
	KindRefresh
	KindSignout
	KindHistory
	KindValidation
	KindRateLimited
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindExpired:       "expired",
	KindMalformed:     "malformed",
	KindInvalidClaims: "invalid_claims",
	KindRevoked:       "revoked",
	KindForbidden:     "forbidden",
	KindSignin:        "signin",
	KindSignup:        "signup",
	KindRefresh:       "refresh",
	KindSignout:       "signout",
	KindHistory:       "history",
	KindValidation:    "validation",
	KindRateLimited:   "rate_limited",
	KindNotFound:      "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a business error carrying its kind and a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithCause attaches the underlying failure, kept for server-side logs.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind keeping cause for server-side logs.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Flow-prefixed constructors. The prefix tells the client which operation failed.

func Signup(reason string) *Error {
	return New(KindSignup, "Signup error. "+reason)
}

func Signin(reason string) *Error {
	return New(KindSignin, "Signin error. "+reason)
}

func Refresh(reason string) *Error {
	return New(KindRefresh, "Refresh token error. "+reason)
}

func Signout(reason string) *Error {
	return New(KindSignout, "Signout error. "+reason)
}

func SignoutAll(reason string) *Error {
	return New(KindSignout, "Signout from all devices error. "+reason)
}

func History(reason string) *Error {
	return New(KindHistory, "History error. "+reason)
}

func Validation(reason string) *Error {
	return New(KindValidation, "Invalid input. "+reason)
}

func Forbidden(reason string) *Error {
	return New(KindForbidden, reason)
}

func NotFound(reason string) *Error {
	return New(KindNotFound, reason)
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsAuth reports whether err means the credentials themselves are unusable.
func IsAuth(err error) bool {
	switch KindOf(err) {
	case KindExpired, KindMalformed, KindInvalidClaims, KindRevoked:
		return true
	}
	return false
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindExpired, KindMalformed, KindInvalidClaims, KindRevoked:
		return http.StatusUnauthorized
	case KindSignin, KindSignup, KindRefresh, KindSignout, KindHistory:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
