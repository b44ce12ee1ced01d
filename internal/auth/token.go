package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Defaults applied when no option overrides them.
const (
	DefaultIssuer   = "course-book-auth-server"
	DefaultValidity = 48 * time.Hour
)

// Claims is the JWT payload carried by gateway tokens.
//
// Username duplicates the subject for clients that read the payload
// directly rather than the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Token is an issued, signed credential.
type Token struct {
	Raw       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithIssuer overrides the issuer tag written into and required from tokens.
func WithIssuer(issuer string) Option {
	return func(s *TokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithValidity overrides the lifetime of issued tokens.
func WithValidity(d time.Duration) Option {
	return func(s *TokenService) {
		if d > 0 {
			s.validity = d
		}
	}
}

// WithClock replaces time.Now for both issuance and verification.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService issues and verifies HS256 identity tokens.
//
// It holds no mutable state after construction and is safe for
// concurrent use. There is no server-side session table; a token is valid
// exactly when its signature, expiry and issuer check out.
type TokenService struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
//
// Parameters:
//   - secret: HMAC key shared by every gateway instance
//   - opts: Optional issuer, validity and clock overrides
//
// Returns:
//   - *TokenService: Ready for use
//   - error: ErrEmptySecret if secret is empty
func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &TokenService{
		secret:   []byte(secret),
		issuer:   DefaultIssuer,
		validity: DefaultValidity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a signed token for subject, valid from now for the
// configured window.
func (s *TokenService) Issue(subject string) (Token, error) {
	if subject == "" {
		return Token{}, ErrEmptySubject
	}

	// JWT timestamps have second precision; truncate so the returned
	// times match what Verify will later see.
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.validity)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Username: subject,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}

	return Token{
		Raw:       signed,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Verify checks signature, expiry and issuer in a single parse and
// returns the subject. On any failure it returns an empty subject and an
// *AuthError.
func (s *TokenService) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &AuthError{Kind: MalformedToken, Err: errors.New("token is empty")}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", &AuthError{Kind: classify(err), Err: err}
	}
	if !token.Valid {
		return "", &AuthError{Kind: MalformedToken, Err: errors.New("token not valid")}
	}
	if claims.Subject == "" {
		return "", &AuthError{Kind: MalformedToken, Err: errors.New("missing subject")}
	}

	return claims.Subject, nil
}

// classify maps a jwt parse error to a rejection kind. Signature problems
// are checked first because the library verifies the signature before it
// looks at any claim.
func classify(err error) AuthErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return MalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return InvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return Expired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return IssuerMismatch
	default:
		return MalformedToken
	}
}

// TokenFromHeader extracts the token from an Authorization header value.
// Both the bare token and the "Bearer <token>" form are accepted.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
