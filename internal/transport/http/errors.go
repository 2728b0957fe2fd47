package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/search"
	"github.com/mindlab/cardshop/internal/service"
)

// ErrorHandler renders every error as {ok:false, error}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"ok": false, "error": msg})
}

var allMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// only registers h for method and answers every other method with 405.
func only(g *echo.Group, method, path string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) {
	g.Add(method, path, h, mw...)
	others := make([]string, 0, len(allMethods)-1)
	for _, m := range allMethods {
		if m != method {
			others = append(others, m)
		}
	}
	g.Match(others, path, func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAllow, method)
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method "+c.Request().Method+" not allowed")
	})
}

// fail logs err under event and converts it to an HTTP error.
func fail(l *slog.Logger, event string, err error) error {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConfirmation):
		code, msg = http.StatusBadRequest, service.Reason(err)
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
		if trimmed := strings.TrimSuffix(msg, ": "+service.ErrNotFound.Error()); trimmed != msg {
			msg = trimmed + " not found"
		} else {
			msg = "not found"
		}
	case errors.Is(err, service.ErrTablesFull):
		code, msg = http.StatusConflict, "tables full"
	case errors.Is(err, service.ErrEmailTaken):
		code = http.StatusConflict
	case errors.Is(err, service.ErrBadCredentials):
		code, msg = http.StatusUnauthorized, service.ErrBadCredentials.Error()
	case errors.Is(err, service.ErrNotSignedIn):
		code, msg = http.StatusUnauthorized, service.ErrNotSignedIn.Error()
	case errors.Is(err, remote.ErrPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, service.ErrNotConfigured), errors.Is(err, remote.ErrNotConfigured), errors.Is(err, search.ErrDisabled):
		code = http.StatusServiceUnavailable
	}

	if code >= 500 {
		l.Error(event, "status", code, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", code, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
