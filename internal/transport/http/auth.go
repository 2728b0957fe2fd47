package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/logging"
	authmw "github.com/mindlab/cardshop/internal/middleware/auth"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/service"
	"github.com/mindlab/cardshop/internal/tokens"
	"github.com/mindlab/cardshop/internal/transport"
)

type AuthHTTP struct {
	Users        *service.UserService
	SecureCookie bool
}

func (h *AuthHTTP) sessionCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     authmw.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHTTP) respond(c echo.Context, status int, res service.AuthResult) error {
	if res.Token != "" {
		c.SetCookie(h.sessionCookie(res.Token, time.Now().Add(tokens.SessionTTL)))
	}
	return c.JSON(status, echo.Map{"ok": true, "user": res.User, "token": res.Token})
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "signup_error", "invalid body", err)
	}
	res, err := h.Users.Signup(ctx, req)
	if err != nil {
		return fail(l, "signup_error", err)
	}

	l.Info("signup_success", "user_id", res.User.ID)
	return h.respond(c, http.StatusCreated, res)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}
	res, err := h.Users.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "user_id", res.User.ID)
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHTTP) Exchange(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.exchange")

	var req transport.ExchangeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "exchange_error", "invalid body", err)
	}
	res, err := h.Users.Exchange(ctx, req.IDToken)
	if err != nil {
		return fail(l, "exchange_error", err)
	}

	l.Info("exchange_success", "user_id", res.User.ID)
	return h.respond(c, http.StatusOK, res)
}

// caller resolves the user behind the request's token. The guard has already
// done so when it is enabled.
func (h *AuthHTTP) caller(c echo.Context) (models.User, error) {
	return h.Users.Authenticate(c.Request().Context(), authmw.TokenFromRequest(c))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	userID := authmw.UserID(c)
	if userID == "" {
		if u, err := h.caller(c); err == nil {
			userID = u.ID
		}
	}
	if err := h.Users.Logout(ctx, userID); err != nil {
		return fail(l, "logout_error", err)
	}
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))

	l.Info("logout_success", "user_id", userID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *AuthHTTP) GetSession(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.session")

	u, err := h.caller(c)
	if errors.Is(err, service.ErrNotSignedIn) {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": nil})
	}
	if err != nil {
		return fail(l, "session_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": u})
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_profile")

	var req transport.ProfilePatch
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_profile_error", "invalid body", err)
	}
	userID := authmw.UserID(c)
	if userID == "" {
		u, err := h.caller(c)
		if err != nil {
			return fail(l, "update_profile_error", err)
		}
		userID = u.ID
	}
	u, err := h.Users.UpdateProfile(ctx, userID, req)
	if err != nil {
		return fail(l, "update_profile_error", err)
	}

	l.Info("update_profile_success", "user_id", u.ID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": u})
}

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "users": users})
}
