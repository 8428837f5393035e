package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

func TestJWTService(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := issuedAt
	svc := NewJWTService("test-signing-key", "cinregistry", "cinregistry-api",
		WithClock(func() time.Time { return clock }))
	actor := id.NewUserID()

	token, err := svc.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)

	t.Run("round trip names the actor", func(t *testing.T) {
		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, actor, claims.Actor)
		assert.Equal(t, actor.String(), claims.Subject)
		assert.NotEmpty(t, claims.ID)
		assert.Equal(t, issuedAt.Add(time.Hour), claims.ExpiresAt.Time.UTC())
	})

	t.Run("adapter carries actor and token id", func(t *testing.T) {
		claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, actor, claims.Actor)
		assert.NotEmpty(t, claims.TokenID)
	})

	t.Run("expired", func(t *testing.T) {
		clock = issuedAt.Add(2 * time.Hour)
		defer func() { clock = issuedAt }()

		_, err := svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "token has expired")
	})

	rejected := map[string]func() string{
		"garbage": func() string { return "not-a-token" },
		"other key": func() string {
			tok, err := NewJWTService("another-key", "cinregistry", "cinregistry-api",
				WithClock(func() time.Time { return clock })).GenerateAccessToken(actor, time.Hour)
			require.NoError(t, err)
			return tok
		},
		"other audience": func() string {
			tok, err := NewJWTService("test-signing-key", "cinregistry", "someone-else",
				WithClock(func() time.Time { return clock })).GenerateAccessToken(actor, time.Hour)
			require.NoError(t, err)
			return tok
		},
		"subject is not a uuid": func() string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "admin",
				Issuer:    "cinregistry",
				Audience:  jwt.ClaimStrings{"cinregistry-api"},
				ExpiresAt: jwt.NewNumericDate(clock.Add(time.Hour)),
			}).SignedString([]byte("test-signing-key"))
			require.NoError(t, err)
			return tok
		},
		"no expiry": func() string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:  actor.String(),
				Issuer:   "cinregistry",
				Audience: jwt.ClaimStrings{"cinregistry-api"},
			}).SignedString([]byte("test-signing-key"))
			require.NoError(t, err)
			return tok
		},
	}
	for name, mint := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(mint())
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), err)
		})
	}
}
