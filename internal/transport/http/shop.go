package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/logging"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/search"
	"github.com/mindlab/cardshop/internal/service"
	"github.com/mindlab/cardshop/internal/transport"
	"github.com/mindlab/cardshop/internal/util"
)

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

// ShopHTTP serves the storefront and the admin console.
type ShopHTTP struct {
	Products     *service.ProductService
	Orders       *service.OrderService
	Reservations *service.ReservationService
	Search       Searcher
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func (h *ShopHTTP) GetCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get")

	products, err := h.Products.Catalog(ctx)
	if err != nil {
		return fail(l, "get_catalog_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "products": products})
}

func (h *ShopHTTP) SearchCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	q := c.QueryParam("q")
	if q == "" {
		return badRequest(l, "search_error", "query is required", nil)
	}
	if h.Search == nil {
		return fail(l, "search_error", search.ErrDisabled)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Search.Search(ctx, q, offset, limit)
	if err != nil {
		return fail(l, "search_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ok":   true,
		"data": items,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func (h *ShopHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	products, err := h.Products.List(ctx)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "products": products})
}

func (h *ShopHTTP) SaveProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.save_product")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "save_product_error", "invalid body", err)
	}
	creating := req.ID == nil
	p, err := h.Products.Save(ctx, req)
	if err != nil {
		return fail(l, "save_product_error", err)
	}

	l.Info("save_product_success", "product_id", p.ID, "created", creating)
	status := http.StatusOK
	if creating {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"ok": true, "product": p})
}

func (h *ShopHTTP) BulkEditProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.bulk_edit_products")

	var req transport.BulkEditRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "bulk_edit_error", "invalid body", err)
	}
	n, err := h.Products.BulkEdit(ctx, req)
	if err != nil {
		return fail(l, "bulk_edit_error", err)
	}

	l.Info("bulk_edit_success", "count", n)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "count": n})
}

func (h *ShopHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "delete_product_error", "id is not a number", err)
	}
	if err := h.Products.Delete(ctx, id, c.QueryParam("confirm") == "true"); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *ShopHTTP) DeleteAllProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_all_products")

	err := h.Products.DeleteAll(ctx, c.QueryParam("confirm") == "true", c.QueryParam("confirm_again") == "true")
	if err != nil {
		return fail(l, "delete_all_products_error", err)
	}

	l.Info("delete_all_products_success")
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *ShopHTTP) UploadProductImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.upload_product_image")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "upload_image_error", "id is not a number", err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(l, "upload_image_error", "image file is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(l, "upload_image_error", "cannot read image", err)
	}
	defer f.Close()

	last := -1
	progress := func(pct int) {
		if pct != last {
			last = pct
			l.Debug("upload_progress", "product_id", id, "percent", pct)
		}
	}
	p, err := h.Products.ReplaceImage(ctx, id, fh.Filename, fh.Header.Get(echo.HeaderContentType), f, fh.Size, progress)
	if err != nil {
		return fail(l, "upload_image_error", err)
	}

	l.Info("upload_image_success", "product_id", id, "image", p.Image)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "product": p})
}

func (h *ShopHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.checkout")

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_error", "invalid body", err)
	}
	order, err := h.Orders.Checkout(ctx, req)
	if err != nil {
		return fail(l, "checkout_error", err)
	}

	l.Info("checkout_success", "order_id", order.ID, "total", order.Total)
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "order": order})
}

func (h *ShopHTTP) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order_status")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "update_order_status_error", "id is not a number", err)
	}
	var req transport.OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_order_status_error", "invalid body", err)
	}
	order, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}

	l.Info("update_order_status_success", "order_id", id, "order_status", order.Status)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "order": order})
}

func (h *ShopHTTP) GetTables(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tables.get")

	tables, err := h.Reservations.Tables(ctx)
	if err != nil {
		return fail(l, "get_tables_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "tables": tables})
}

func (h *ShopHTTP) ListReservations(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reservations.list")

	items, err := h.Reservations.List(ctx)
	if err != nil {
		return fail(l, "list_reservations_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "reservations": items})
}

func (h *ShopHTTP) Reserve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reservations.reserve")

	var req transport.ReservationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reserve_error", "invalid body", err)
	}
	r, err := h.Reservations.Reserve(ctx, req)
	if err != nil {
		return fail(l, "reserve_error", err)
	}

	l.Info("reserve_success", "reservation_id", r.ID, "table_id", r.TableID)
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "reservation": r})
}

func (h *ShopHTTP) CancelReservation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reservations.cancel")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "cancel_reservation_error", "id is not a number", err)
	}
	r, err := h.Reservations.Cancel(ctx, id)
	if err != nil {
		return fail(l, "cancel_reservation_error", err)
	}

	l.Info("cancel_reservation_success", "reservation_id", id, "table_id", r.TableID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "reservation": r})
}

func (h *ShopHTTP) EditReservation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reservations.edit")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "edit_reservation_error", "id is not a number", err)
	}
	var req transport.ReservationPatch
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "edit_reservation_error", "invalid body", err)
	}
	r, err := h.Reservations.Edit(ctx, id, req)
	if err != nil {
		return fail(l, "edit_reservation_error", err)
	}

	l.Info("edit_reservation_success", "reservation_id", id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "reservation": r})
}
