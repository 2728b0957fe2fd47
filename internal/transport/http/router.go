package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/mindlab/cardshop/internal/middleware/auth"
	"github.com/mindlab/cardshop/internal/transport/ws"
)

type Deps struct {
	Shop     *ShopHTTP
	Admin    *AdminHTTP
	Auth     *AuthHTTP
	Guard    *authmw.Guard
	Live     *ws.Hub
	MediaDir string
	// Ready reports whether the live views have received their first snapshot.
	Ready func() bool
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil && !d.Ready() {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.MediaDir != "" {
		e.Static("/media", d.MediaDir)
	}

	api := e.Group("/api")
	admin := d.Guard.RequireAdmin

	only(api, http.MethodGet, "/products", d.Admin.GetDefaultProducts)
	only(api, http.MethodGet, "/orders", d.Admin.GetOrders, admin)
	only(api, http.MethodPost, "/create-order", d.Admin.CreateOrder)
	only(api, http.MethodPost, "/delete-order", d.Admin.DeleteOrder, admin)
	only(api, http.MethodPost, "/update-user", d.Admin.UpdateUser, admin)
	only(api, http.MethodGet, "/dashboard-summary", d.Admin.DashboardSummary, admin)
	only(api, http.MethodPost, "/sync-auth-users", d.Admin.SyncAuthUsers, admin)
	only(api, http.MethodPost, "/sync-local-data", d.Admin.SyncLocalData, admin)

	api.GET("/catalog", d.Shop.GetCatalog)
	api.GET("/catalog/search", d.Shop.SearchCatalog)
	api.POST("/checkout", d.Shop.Checkout)

	api.GET("/tables", d.Shop.GetTables)
	api.GET("/reservations", d.Shop.ListReservations)
	api.POST("/reservations", d.Shop.Reserve)
	api.POST("/reservations/:id/cancel", d.Shop.CancelReservation, admin)
	api.PATCH("/reservations/:id", d.Shop.EditReservation, admin)

	auth := api.Group("/auth")
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/exchange", d.Auth.Exchange)
	auth.GET("/session", d.Auth.GetSession)
	auth.PATCH("/session", d.Auth.UpdateProfile, d.Guard.RequireLogin)

	if d.Live != nil {
		api.GET("/live/:collection", d.Live.Handle)
	}

	ad := api.Group("/admin", admin)
	ad.GET("/products", d.Shop.ListProducts)
	ad.POST("/products", d.Shop.SaveProduct)
	ad.PATCH("/products", d.Shop.BulkEditProducts)
	ad.DELETE("/products", d.Shop.DeleteAllProducts)
	ad.DELETE("/products/:id", d.Shop.DeleteProduct)
	ad.POST("/products/:id/image", d.Shop.UploadProductImage)
	ad.PATCH("/orders/:id", d.Shop.UpdateOrderStatus)
	ad.GET("/users", d.Auth.ListUsers)
}
