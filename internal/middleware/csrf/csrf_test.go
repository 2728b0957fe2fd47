package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/catalog", ok)
	e.POST("/api/checkout", ok)
	return e
}

func TestSafeMethodIssuesToken(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" {
			found = true
			require.Equal(t, token, ck.Value)
		}
	}
	require.True(t, found)
}

func TestUnsafeWithoutSessionPasses(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionCookieNeedsToken(t *testing.T) {
	e := newServer()

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "jwt"})
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "jwt"})
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	req.Header.Set("X-CSRF-Token", "abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCrossOriginRejected(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.Host = "shop.local"
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("X-CSRF-Token", "abc")
	req.AddCookie(&http.Cookie{Name: "session", Value: "jwt"})
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBearerIsExempt(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer jwt")
	req.AddCookie(&http.Cookie{Name: "session", Value: "jwt"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
