package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims the server understands.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator checks HS256 tokens signed with a shared secret and can mint
// them for tooling and tests.
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
	clock    quartz.Clock
}

// NewJWTValidator returns a validator for tokens issued by issuer. An empty
// audience skips the audience check.
func NewJWTValidator(secret, issuer, audience string, clock quartz.Clock) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer, audience: audience, clock: clock}
}

// Issue signs a token for username valid for ttl.
func (v *JWTValidator) Issue(username, role string, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTValidator) Validate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.clock.Now() }),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	case err != nil:
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return Identity{}, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}
	return Identity{Username: username, Role: claims.Role}, nil
}
