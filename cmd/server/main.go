package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mindlab/cardshop/internal/catalog"
	"github.com/mindlab/cardshop/internal/config"
	"github.com/mindlab/cardshop/internal/events"
	"github.com/mindlab/cardshop/internal/importer"
	"github.com/mindlab/cardshop/internal/logging"
	authmw "github.com/mindlab/cardshop/internal/middleware/auth"
	"github.com/mindlab/cardshop/internal/middleware/csrf"
	loggingmw "github.com/mindlab/cardshop/internal/middleware/logging"
	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/search"
	"github.com/mindlab/cardshop/internal/service"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	httpserver "github.com/mindlab/cardshop/internal/transport/http"
	"github.com/mindlab/cardshop/internal/transport/ws"
)

func main() {
	cfg := config.LoadConfig()
	cfg.Require()

	logger := logging.New(cfg.LogLevel).With("service", "cardshop")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := mirror.Open(openCtx, cfg.MirrorDriver, cfg.MirrorDSN)
	cancel()
	if err != nil {
		log.Fatalf("mirror open: %v", err)
	}
	m := mirror.New(db, mirror.NewBus())

	// The mode is resolved once. A remote that cannot be reached demotes the
	// process to local mode for its whole lifetime.
	backend := store.Backend{Mode: cfg.Mode(), Mirror: m}
	var rb *remoteBackend
	if backend.Mode == config.ModeRemote {
		connCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
		rb, err = connectRemote(connCtx, cfg, logger)
		cancel()
		if err != nil {
			logger.Error("remote_unavailable", "driver", cfg.RemoteDriver, "error", err)
			backend.Mode = config.ModeLocal
			rb = nil
		} else {
			backend.Remote = rb.store
		}
	}
	logger.Info("backend_selected", "mode", backend.Mode.String())

	var publisher events.Publisher = events.Discard{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = producer
	}
	syncOpts := []syncer.Option{
		syncer.WithTimeout(cfg.RemoteTimeout),
		syncer.WithEvents(publisher),
		syncer.WithLogger(logger),
	}

	productSync := syncer.New("products", store.Open[models.Product](backend, store.Products), syncOpts...)
	orderSync := syncer.New("orders", store.Open[models.Order](backend, store.Orders), syncOpts...)
	reservationSync := syncer.New("table_reservations", store.Open[models.Reservation](backend, store.Reservations), syncOpts...)
	userSync := syncer.New("users", store.Open[models.User](backend, store.Users), syncOpts...)

	productView := syncer.NewLiveView("products", productSync.Store(),
		syncer.WithReseed(service.CatalogReseed(productSync, cfg.CatalogPath)),
		syncer.WithReseedTimeout(cfg.RemoteTimeout),
		syncer.WithViewLogger(logger))
	productSync.Bind(productView)
	orderView := syncer.NewLiveView("orders", orderSync.Store(), syncer.WithViewLogger(logger))
	orderSync.Bind(orderView)
	reservationView := syncer.NewLiveView("table_reservations", reservationSync.Store(), syncer.WithViewLogger(logger))
	reservationSync.Bind(reservationView)

	var ledger service.TableLedger = &service.MirroredTables{M: m}
	if backend.Mode == config.ModeRemote {
		ledger = service.DerivedTables{}
	}

	session := service.NewSession(m)
	if err := session.Load(ctx); err != nil {
		logger.Warn("session_load_error", "error", err)
	} else if u, ok := session.Current(); ok {
		logger.Info("session_restored", "user_id", u.ID)
	}
	users := &service.UserService{
		Sync:        userSync,
		Session:     session,
		Secret:      cfg.JWTSecret,
		AdminEmails: cfg.AdminEmails,
	}
	im := &importer.Importer{AdminEmails: cfg.AdminEmails}
	if rb != nil {
		im.Remote = rb.store
		if rb.dir != nil {
			im.Users = rb.dir
			users.Verifier = rb.dir
		}
	}
	if backend.Mode == config.ModeLocal {
		if n, err := users.SeedSamples(ctx); err != nil {
			logger.Warn("seed_users_error", "error", err)
		} else if n > 0 {
			logger.Info("seed_users", "count", n)
		}
	}

	uploader, mediaCloser, mediaDir := openMedia(ctx, cfg, rb, logger)

	products := &service.ProductService{
		Sync:  productSync,
		View:  productView,
		Cache: catalog.NewCache(m),
		Media: uploader,
	}
	orders := &service.OrderService{Sync: orderSync, View: orderView, Products: productSync}
	reservations := &service.ReservationService{Sync: reservationSync, View: reservationView, Ledger: ledger}

	stopInvalidate := products.InvalidateOnChange(ctx)
	defer stopInvalidate()

	for _, v := range []interface{ Start(context.Context) error }{productView, orderView, reservationView} {
		if err := v.Start(ctx); err != nil {
			logger.Error("live_view_start_error", "error", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		relay := mirror.NewRelay(rdb, cfg.RedisChannel, m, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("relay_stopped", "error", err)
			}
		}()
	}

	shop := &httpserver.ShopHTTP{Products: products, Orders: orders, Reservations: reservations}
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("search_unavailable", "error", err)
		} else {
			idx := search.NewIndex(es, cfg.ESIndex, logger)
			go idx.Follow(ctx, productView)
			shop.Search = idx
		}
	}

	hub := ws.NewHub()
	hub.Add("products", ws.FromView(productView))
	hub.Add("orders", ws.FromView(orderView))
	hub.Add("table_reservations", ws.FromView(reservationView))

	secure := strings.HasPrefix(cfg.PublicBaseURL, "https://")

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	e.Use(echomw.Secure())
	e.Use(csrf.Middleware(csrf.Config{SessionCookie: authmw.SessionCookie, Secure: secure}))

	httpserver.Register(e, &httpserver.Deps{
		Shop: shop,
		Admin: &httpserver.AdminHTTP{
			Orders:      orders,
			Users:       users,
			Dashboard:   &service.DashboardService{Users: userSync, Products: productSync, Orders: orderSync, Reservations: reservationSync},
			Importer:    im,
			CatalogPath: cfg.CatalogPath,
		},
		Auth:     &httpserver.AuthHTTP{Users: users, SecureCookie: secure},
		Guard:    authmw.NewGuard(cfg.JWTSecret, logger),
		Live:     hub,
		MediaDir: mediaDir,
		Ready: func() bool {
			return productView.Current().State != syncer.StateLoading &&
				orderView.Current().State != syncer.StateLoading &&
				reservationView.Current().State != syncer.StateLoading
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "mode", backend.Mode.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_error", "error", err)
	}

	productView.Stop()
	orderView.Stop()
	reservationView.Stop()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka_close_error", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if mediaCloser != nil {
		_ = mediaCloser.Close()
	}
	if rb != nil {
		rb.Close(logger)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("cardshop stopped")
}
