package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *echo.Echo {
	e := echo.New()
	g := e.Group("/api", JWTMiddleware())
	g.GET("/me", func(c echo.Context) error {
		cl := GetClaims(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": cl.UserID, "role": cl.Role})
	})
	g.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, AdminOnly)
	return e
}

func do(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	SetSecret("test-secret")
	e := newTestServer()

	token, err := GenerateToken(7, "ana@example.com", "", 1)
	require.NoError(t, err)

	rec := do(e, "/api/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"customer"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "Bearer garbage").Code)
}

func TestJWTMiddleware_RejectsForeignOrExpiredTokens(t *testing.T) {
	SetSecret("test-secret")
	e := newTestServer()

	expired, err := GenerateToken(7, "ana@example.com", "customer", -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "Bearer "+expired).Code)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/api/me", "Bearer "+signed).Code)
}

func TestAdminOnly(t *testing.T) {
	SetSecret("test-secret")
	e := newTestServer()

	customer, _ := GenerateToken(1, "ana@example.com", "customer", 1)
	admin, _ := GenerateToken(3, "boss@example.com", "admin", 1)

	rec := do(e, "/api/admin", "Bearer "+customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"forbidden"`)

	assert.Equal(t, http.StatusNoContent, do(e, "/api/admin", "Bearer "+admin).Code)
}
