package auth

import (
	"errors"
	"fmt"
)

// Construction and issuance errors.
var (
	ErrEmptySecret  = errors.New("token secret is required")
	ErrEmptySubject = errors.New("token subject is required")
)

// AuthErrorKind classifies why a token was rejected.
type AuthErrorKind int

// Rejection kinds reported by Verify.
const (
	InvalidSignature AuthErrorKind = iota + 1
	Expired
	MalformedToken
	IssuerMismatch
)

// String returns the kind name used in logs and error messages.
func (k AuthErrorKind) String() string {
	switch k {
	case InvalidSignature:
		return "invalid signature"
	case Expired:
		return "token expired"
	case MalformedToken:
		return "malformed token"
	case IssuerMismatch:
		return "issuer mismatch"
	default:
		return "unknown"
	}
}

// AuthError is returned by Verify for every rejected token.
//
// Use errors.As to inspect Kind, or errors.Is against a bare
// &AuthError{Kind: ...} to match on kind alone.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}
