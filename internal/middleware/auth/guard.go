package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/logging"
	"github.com/mindlab/cardshop/internal/tokens"
)

// Guard checks session tokens. With an empty secret every request passes.
type Guard struct {
	secret []byte
}

func NewGuard(secret []byte, log *slog.Logger) *Guard {
	if len(secret) == 0 && log != nil {
		log.Warn("auth_guard_disabled", "reason", "JWT_SECRET is empty, admin routes are open")
	}
	return &Guard{secret: secret}
}

func (g *Guard) Enabled() bool { return len(g.secret) > 0 }

func (g *Guard) authenticate(c echo.Context) (*tokens.SessionClaims, error) {
	l := logging.FromContext(c.Request().Context()).With("middleware", "auth")

	raw := TokenFromRequest(c)
	if raw == "" {
		l.Warn("auth_error", "status", 401, "reason", "missing token")
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
	}
	claims, err := tokens.SessionClaimsFromToken(raw, g.secret)
	if err != nil {
		l.Warn("auth_error", "status", 401, "reason", "invalid token", "error", err)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
	}
	setUserContext(c, claims)
	return claims, nil
}

func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !g.Enabled() {
			return next(c)
		}
		if _, err := g.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !g.Enabled() {
			return next(c)
		}
		claims, err := g.authenticate(c)
		if err != nil {
			return err
		}
		if !claims.Admin {
			logging.FromContext(c.Request().Context()).Warn("auth_error", "status", 403, "reason", "not an admin", "user_id", claims.Subject)
			return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
		}
		return next(c)
	}
}
