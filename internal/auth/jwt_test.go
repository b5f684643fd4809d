package auth

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTValidatorRoundTrip(t *testing.T) {
	clk := quartz.NewMock(t)
	v := NewJWTValidator("secret", "pokerrooms", "tables", clk)

	token, err := v.Issue("alice", RoleAdmin, time.Hour)
	require.NoError(t, err)

	id, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "alice", Role: RoleAdmin}, id)
	assert.True(t, id.IsAdmin())
}

func TestJWTValidatorRejects(t *testing.T) {
	ctx := context.Background()
	clk := quartz.NewMock(t)
	v := NewJWTValidator("secret", "pokerrooms", "tables", clk)

	expiring, err := v.Issue("alice", "", time.Minute)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute).MustWait(ctx)
	_, err = v.Validate(ctx, expiring)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "expired")

	other, err := NewJWTValidator("other-secret", "pokerrooms", "tables", clk).Issue("alice", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(ctx, other)
	require.ErrorIs(t, err, ErrInvalidToken, "wrong signature")

	foreign, err := NewJWTValidator("secret", "elsewhere", "tables", clk).Issue("alice", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(ctx, foreign)
	require.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	wrongAud, err := NewJWTValidator("secret", "pokerrooms", "chat", clk).Issue("alice", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(ctx, wrongAud)
	require.ErrorIs(t, err, ErrInvalidToken, "wrong audience")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "pokerrooms",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Validate(ctx, none)
	require.ErrorIs(t, err, ErrInvalidToken, "unsigned tokens")

	_, err = v.Validate(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Validate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidatorSubjectFallback(t *testing.T) {
	clk := quartz.NewMock(t)
	v := NewJWTValidator("secret", "", "", clk)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "bob",
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	id, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Username)
	assert.False(t, id.IsAdmin())
}
