package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/medistock-backend/internal/auth/jwt"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/errors"
)

func newManager(secret string, expiry time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:       secret,
		AccessExpiry: expiry,
		Issuer:       "medistock",
	})
}

func TestManager_GenerateAndVerify(t *testing.T) {
	manager := newManager("test-secret", time.Hour)

	token, err := manager.Generate(&jwt.UserInfo{
		ID:       "user-1",
		Username: "asha",
		Role:     "owner",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	claims, err := manager.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "asha", claims.Username)
	assert.Equal(t, "owner", claims.Role)
	assert.Equal(t, "medistock", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestManager_VerifyRejectsWrongSecret(t *testing.T) {
	issuer := newManager("secret-a", time.Hour)
	verifier := newManager("secret-b", time.Hour)

	token, err := issuer.Generate(&jwt.UserInfo{ID: "user-1", Username: "asha", Role: "staff"})
	require.NoError(t, err)

	_, err = verifier.Verify(token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestManager_VerifyRejectsExpiredToken(t *testing.T) {
	manager := newManager("test-secret", -time.Minute)

	token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Username: "asha", Role: "staff"})
	require.NoError(t, err)

	_, err = manager.Verify(token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "token expired", appErr.Message)
}

func TestManager_VerifyRejectsGarbage(t *testing.T) {
	manager := newManager("test-secret", time.Hour)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := manager.Verify(tokenString)
		assert.ErrorIs(t, err, errors.ErrUnauthorized, "token %q", tokenString)
	}
}
