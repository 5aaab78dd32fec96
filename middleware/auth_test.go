package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func authRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/teams", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	var gotRole, gotSub string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = RoleFromContext(r.Context())
		gotSub, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := auth.Authenticate(next)

	t.Run("valid token", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{
			"sub":  "42",
			"role": RoleAdmin,
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, RoleAdmin, gotRole)
		assert.Equal(t, "42", gotSub)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signedToken(t, "other-secret", jwt.MapClaims{"role": RoleAdmin})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin,
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthorize(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := auth.Authenticate(Authorize(RoleAdmin)(next))

	t.Run("allowed role", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{"role": RoleAdmin})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("disallowed role", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{"role": RoleOperator})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing role claim", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{"sub": "42"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authRequest(token))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
