package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mindlab/cardshop/internal/tokens"
)

var secret = []byte("test-secret")

func run(t *testing.T, mw echo.MiddlewareFunc, token string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	return he.Code
}

func TestRequireAdmin(t *testing.T) {
	g := NewGuard(secret, nil)

	_, err := run(t, g.RequireAdmin, "")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = run(t, g.RequireAdmin, "garbage")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	userTok, err := tokens.SignSession("u1", "demo@example.com", false, secret)
	require.NoError(t, err)
	_, err = run(t, g.RequireAdmin, userTok)
	require.Equal(t, http.StatusForbidden, statusOf(t, err))

	adminTok, err := tokens.SignSession("u2", "admin@example.com", true, secret)
	require.NoError(t, err)
	c, err := run(t, g.RequireAdmin, adminTok)
	require.NoError(t, err)
	require.Equal(t, "u2", UserID(c))
}

func TestRequireLogin(t *testing.T) {
	g := NewGuard(secret, nil)
	tok, err := tokens.SignSession("u1", "demo@example.com", false, secret)
	require.NoError(t, err)

	c, err := run(t, g.RequireLogin, tok)
	require.NoError(t, err)
	require.Equal(t, "u1", UserID(c))
}

func TestDisabledGuardPassesEverything(t *testing.T) {
	g := NewGuard(nil, nil)
	require.False(t, g.Enabled())

	c, err := run(t, g.RequireAdmin, "")
	require.NoError(t, err)
	require.Empty(t, UserID(c))
}
