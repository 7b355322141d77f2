package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medistock/medistock-backend/internal/auth/jwt"
	"github.com/medistock/medistock-backend/internal/auth/repository"
	"github.com/medistock/medistock-backend/internal/auth/service"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/testutil"
)

func newAuthService(mockDB *testutil.MockDB) *service.AuthService {
	log := logger.New("auth-test", "test")
	db := database.Wrap(mockDB.DB, log)
	tokens := jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: time.Hour,
		Issuer:       "medistock",
	})
	return service.NewAuthService(repository.NewUserRepository(db), tokens, log)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAuthService(mockDB)

	mockDB.ExpectQuery("INSERT INTO users").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))

	user, err := svc.Register(ctx, service.RegisterInput{
		Username: "asha",
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "staff", user.Role)
	assert.True(t, user.IsActive)
	// The stored hash must verify against the original password.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	mockDB.ExpectationsWereMet(t)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("issues token for valid credentials", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newAuthService(mockDB)
		mockDB.ExpectQuery("FROM users").WithArgs("asha").
			WillReturnRows(testutil.MockRows(
				"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at",
			).AddRow("user-1", "asha", "asha@example.com", string(hash), "owner", true, time.Now(), time.Now()))

		result, err := svc.Login(ctx, service.LoginInput{Username: "asha", Password: "correct-horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token.AccessToken)
		assert.Equal(t, "Bearer", result.Token.TokenType)
		assert.Equal(t, "user-1", result.User.ID)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newAuthService(mockDB)
		mockDB.ExpectQuery("FROM users").WithArgs("asha").
			WillReturnRows(testutil.MockRows(
				"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at",
			).AddRow("user-1", "asha", "asha@example.com", string(hash), "owner", true, time.Now(), time.Now()))

		_, err := svc.Login(ctx, service.LoginInput{Username: "asha", Password: "wrong"})
		assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("unknown user maps to invalid credentials", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newAuthService(mockDB)
		mockDB.ExpectQuery("FROM users").WithArgs("nobody").
			WillReturnRows(testutil.MockRows(
				"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at",
			))

		// Not-found is deliberately indistinguishable from a bad password.
		_, err := svc.Login(ctx, service.LoginInput{Username: "nobody", Password: "anything"})
		assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("disabled account", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newAuthService(mockDB)
		mockDB.ExpectQuery("FROM users").WithArgs("asha").
			WillReturnRows(testutil.MockRows(
				"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at",
			).AddRow("user-1", "asha", "asha@example.com", string(hash), "owner", false, time.Now(), time.Now()))

		_, err := svc.Login(ctx, service.LoginInput{Username: "asha", Password: "correct-horse"})
		assert.ErrorIs(t, err, errors.ErrUnauthorized)

		mockDB.ExpectationsWereMet(t)
	})
}
