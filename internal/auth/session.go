// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs and verifies the identity tokens carried in the auth_token cookie.
type Issuer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	// ttl of zero issues tokens without an exp claim.
	ttl time.Duration
	now func() time.Time
}

// NewIssuer generates a fresh ed25519 key pair. Tokens do not survive a restart.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Issuer{private: private, public: public, ttl: ttl, now: time.Now}, nil
}

// ParseTTL reads a TOKEN_EXPIRE_TIME value: a Go duration, or "never"/"0"/"" for no expiry.
func ParseTTL(s string) (time.Duration, error) {
	switch s {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse token expire time: %w", err)
	}
	return d, nil
}

// TTL is how long issued tokens stay valid, zero meaning forever.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// CreateJWT signs a token whose subject is userID.
func (i *Issuer) CreateJWT(userID uuid.UUID) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.private)
}

// AuthenticateJWT verifies token and returns the user id in its subject.
func (i *Issuer) AuthenticateJWT(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.public, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return id, nil
}
