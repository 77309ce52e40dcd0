// Package auth verifies bearer tokens and carries the resulting identity
// through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for missing, malformed, or expired credentials.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks a bearer token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims are the JWT claims the verifier expects: registered claims plus
// the user id (sub) and email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTVerifier validates HS256-signed tokens from the identity provider.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the given signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the caller's identity.
// All failures collapse into ErrInvalidToken; callers map it to 401.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// GenerateToken issues a signed token for uid/email. Used by tests and the
// local development tooling; production tokens come from the identity
// provider sharing the same secret.
func GenerateToken(uid, email string, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Email: email,
	})
	return token.SignedString(secret)
}

type contextKey struct{}

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the verified identity placed by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
