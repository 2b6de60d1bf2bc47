// Package auth is a thin bearer-token verification boundary standing in
// for the external session/identity provider: it proves a request carries
// a token this service issued, and extracts the subject user id. Issue
// mints the HS256 tokens it verifies; it does not manage sessions or store
// any credential state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the subject identity a verified token carries.
type Claims struct {
	UserID string
	Email  string
}

// Verifier validates HS256 bearer tokens issued with the configured
// secret and issuer.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier. An empty secret makes every Verify call
// fail closed, rather than silently accepting unsigned tokens.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses and validates tokenString, returning the subject claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	parsed := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if parsed.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: parsed.Subject, Email: parsed.Email}, nil
}

// Issue mints a bearer token for userID, used by tests and the local
// trial-start flow that stands in for the external identity provider's
// session issuance.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrInvalidToken
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
