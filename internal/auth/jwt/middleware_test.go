package jwt_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/medistock-backend/internal/auth/jwt"
	"github.com/medistock/medistock-backend/pkg/actor"
	"github.com/medistock/medistock-backend/pkg/testutil"
)

func okHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := actor.FromContext(r.Context())
		require.NotNil(t, a)
		assert.Equal(t, wantUserID, a.ID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	manager := newManager("test-secret", time.Hour)
	protected := jwt.Authenticate(manager)(okHandler(t, "user-1"))

	t.Run("valid token passes the actor through", func(t *testing.T) {
		token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Username: "asha", Role: "staff"})
		require.NoError(t, err)

		req := testutil.WithBearerToken(testutil.NewHTTPRequest(http.MethodGet, "/medicines", nil), token.AccessToken)
		rr := testutil.ExecuteRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("missing header", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodGet, "/medicines", nil)
		rr := testutil.ExecuteRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertBodyContains(t, rr, "missing authorization header")
	})

	t.Run("malformed header", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodGet, "/medicines", nil)
		req.Header.Set("Authorization", "Token abc")
		rr := testutil.ExecuteRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("tampered token", func(t *testing.T) {
		token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Username: "asha", Role: "staff"})
		require.NoError(t, err)

		req := testutil.WithBearerToken(testutil.NewHTTPRequest(http.MethodGet, "/medicines", nil), token.AccessToken+"x")
		rr := testutil.ExecuteRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestRequireRole(t *testing.T) {
	manager := newManager("test-secret", time.Hour)

	handler := jwt.Authenticate(manager)(
		jwt.RequireRole("owner")(okHandler(t, "user-1")),
	)

	t.Run("allowed role", func(t *testing.T) {
		token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Username: "asha", Role: "owner"})
		require.NoError(t, err)

		req := testutil.WithBearerToken(testutil.NewHTTPRequest(http.MethodDelete, "/medicines/1", nil), token.AccessToken)
		rr := testutil.ExecuteRequest(handler, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("wrong role", func(t *testing.T) {
		token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Username: "ravi", Role: "staff"})
		require.NoError(t, err)

		req := testutil.WithBearerToken(testutil.NewHTTPRequest(http.MethodDelete, "/medicines/1", nil), token.AccessToken)
		rr := testutil.ExecuteRequest(handler, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertBodyContains(t, rr, "insufficient role")
	})

	t.Run("no actor without Authenticate", func(t *testing.T) {
		bare := jwt.RequireRole("owner")(okHandler(t, "user-1"))
		req := testutil.NewHTTPRequest(http.MethodDelete, "/medicines/1", nil)
		rr := testutil.ExecuteRequest(bare, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
