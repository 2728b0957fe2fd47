package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/tokens"
)

const (
	SessionCookie = "session"

	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
)

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func setUserContext(c echo.Context, claims *tokens.SessionClaims) {
	c.Set(ctxUserID, claims.Subject)
	c.Set(ctxIsAdmin, claims.Admin)
}

// UserID is the authenticated user of the request, or "" when the guard is
// disabled or the route is public.
func UserID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}
