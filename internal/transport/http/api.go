package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/catalog"
	"github.com/mindlab/cardshop/internal/importer"
	"github.com/mindlab/cardshop/internal/logging"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/service"
	"github.com/mindlab/cardshop/internal/transport"
)

// Importer runs the administrative bulk jobs.
type Importer interface {
	PushSnapshot(ctx context.Context, snap importer.Snapshot) (importer.Results, error)
	SyncAuthUsers(ctx context.Context) (int, error)
}

// AdminHTTP serves the operator endpoints that need backend credentials.
type AdminHTTP struct {
	Orders      *service.OrderService
	Users       *service.UserService
	Dashboard   *service.DashboardService
	Importer    Importer
	CatalogPath string
}

func (h *AdminHTTP) GetDefaultProducts(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "api.products")

	products, err := catalog.Defaults(h.CatalogPath)
	if err != nil {
		reason := "Cannot read products.json"
		if errors.Is(err, catalog.ErrInvalid) {
			reason = "Invalid JSON format"
		}
		l.Error("get_products_error", "status", 500, "reason", reason, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, reason)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

func (h *AdminHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.orders")

	orders, err := h.Orders.List(ctx)
	if err != nil {
		return fail(l, "get_orders_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "orders": orders})
}

func (h *AdminHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.create_order")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_order_error", "invalid body", err)
	}
	id, err := h.Orders.CreateOrder(ctx, req.Order)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": id})
}

func (h *AdminHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.delete_order")

	var req transport.DeleteOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "delete_order_error", "invalid body", err)
	}
	if err := h.Orders.Delete(ctx, req.FirestoreID); err != nil {
		return fail(l, "delete_order_error", err)
	}

	l.Info("delete_order_success", "firestore_id", req.FirestoreID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *AdminHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.update_user")

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_user_error", "invalid body", err)
	}
	if err := h.Users.AdminUpdate(ctx, req.UserID, req.Updates); err != nil {
		return fail(l, "update_user_error", err)
	}

	l.Info("update_user_success", "user_id", req.UserID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *AdminHTTP) DashboardSummary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.dashboard_summary")

	sum, err := h.Dashboard.Summary(ctx)
	if err != nil {
		return fail(l, "dashboard_summary_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "summary": sum})
}

func (h *AdminHTTP) SyncAuthUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.sync_auth_users")

	if h.Importer == nil {
		l.Error("sync_auth_users_error", "status", 500, "reason", "remote store is not configured")
		return echo.NewHTTPError(http.StatusInternalServerError, remote.ErrNotConfigured.Error())
	}
	n, err := h.Importer.SyncAuthUsers(ctx)
	if err != nil {
		l.Error("sync_auth_users_error", "status", 500, "synced", n, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": err.Error(), "count": n})
	}

	l.Info("sync_auth_users_success", "count", n)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "count": n})
}

func (h *AdminHTTP) SyncLocalData(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "api.sync_local_data")

	var req transport.SyncLocalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "sync_local_data_error", "invalid body", err)
	}
	if h.Importer == nil {
		l.Error("sync_local_data_error", "status", 500, "reason", "remote store is not configured")
		return echo.NewHTTPError(http.StatusInternalServerError, remote.ErrNotConfigured.Error())
	}
	res, err := h.Importer.PushSnapshot(ctx, importer.Snapshot{
		Products:     req.Products,
		Orders:       req.Orders,
		Reservations: req.Reservations,
	})
	if err != nil {
		l.Error("sync_local_data_error", "status", 500, "products", res.Products, "orders", res.Orders,
			"reservations", res.Reservations, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": err.Error(), "results": res})
	}

	l.Info("sync_local_data_success", "products", res.Products, "orders", res.Orders, "reservations", res.Reservations)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "results": res})
}
