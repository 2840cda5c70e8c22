package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edostavka/backend/api/routes"
	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/internal/auth"
	"github.com/edostavka/backend/internal/banners"
	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/internal/employees"
	"github.com/edostavka/backend/internal/favorites"
	"github.com/edostavka/backend/internal/feedback"
	"github.com/edostavka/backend/internal/notifications"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/internal/reviews"
	"github.com/edostavka/backend/internal/sync"
	"github.com/edostavka/backend/internal/users"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/localstate"
	"github.com/edostavka/backend/pkg/logger"
	"github.com/edostavka/backend/pkg/metrics"
)

// courierLink breaks the construction cycle between the orders and
// employees services: orders needs a courier finder before the
// employees service, which reads orders, exists.
type courierLink struct {
	svc employees.Service
}

func (c *courierLink) FindAvailable(ctx context.Context) (string, bool, error) {
	return c.svc.FindAvailable(ctx)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	state, err := localstate.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap state store", err)
		os.Exit(1)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logg.Error(context.Background(), "error closing state store", err)
		}
	}()

	base, err := airtable.NewClient(cfg.Airtable, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap record client", err)
		os.Exit(1)
	}

	catalogRepo, err := catalog.NewRepository(base.Table(cfg.Airtable.ProductsTable))
	if err != nil {
		fatal(logg, "failed to create catalog repository", err)
	}
	catalogSvc, err := catalog.NewService(catalogRepo, logg)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}

	cartStore, err := cart.NewStore(base.Table(cfg.Airtable.UsersTable))
	if err != nil {
		fatal(logg, "failed to create cart store", err)
	}
	cartSvc, err := cart.NewService(catalogSvc, cartStore, cfg.Cart, logg)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	bannersSvc, err := banners.NewService(base.Table(cfg.Airtable.BannersTable))
	if err != nil {
		fatal(logg, "failed to create banners service", err)
	}

	notificationsSvc, err := notifications.NewService(base.Table(cfg.Airtable.NotificationsTable), bannersSvc, state, logg)
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}

	ordersRepo, err := orders.NewRepository(base.Table(cfg.Airtable.OrdersTable))
	if err != nil {
		fatal(logg, "failed to create orders repository", err)
	}
	couriers := &courierLink{}
	ordersSvc, err := orders.NewService(ordersRepo, catalogSvc, couriers, notificationsSvc, cfg.Checkout, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}

	employeesRepo, err := employees.NewRepository(base.Table(cfg.Airtable.EmployeesTable))
	if err != nil {
		fatal(logg, "failed to create employees repository", err)
	}
	employeesSvc, err := employees.NewService(employeesRepo, ordersSvc, ordersRepo, logg)
	if err != nil {
		fatal(logg, "failed to create employees service", err)
	}
	couriers.svc = employeesSvc

	reviewsSvc, err := reviews.NewService(base.Table(cfg.Airtable.ReviewsTable), catalogSvc, logg)
	if err != nil {
		fatal(logg, "failed to create reviews service", err)
	}

	feedbackSvc, err := feedback.NewService(base.Table(cfg.Airtable.FeedbackTable))
	if err != nil {
		fatal(logg, "failed to create feedback service", err)
	}

	favoritesSvc, err := favorites.NewService(state, catalogSvc)
	if err != nil {
		fatal(logg, "failed to create favorites service", err)
	}

	usersRepo, err := users.NewRepository(base.Table(cfg.Airtable.UsersTable))
	if err != nil {
		fatal(logg, "failed to create users repository", err)
	}
	authSvc, err := auth.NewService(usersRepo, employeesSvc, state, cfg.Session, logg)
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)

	manager, err := sync.NewManager(sync.ManagerParams{
		Catalog:       catalogSvc,
		Orders:        ordersSvc,
		Reviews:       reviewsSvc,
		Notifications: notificationsSvc,
		State:         state,
		Couriers:      employeesSvc,
		Queue:         ordersSvc,
		Sync:          cfg.Sync,
		Session:       cfg.Session,
		Logger:        logg,
		Metrics:       pollerMetrics,
	})
	if err != nil {
		fatal(logg, "failed to create sync manager", err)
	}
	if err := manager.Start(); err != nil {
		fatal(logg, "failed to start sync manager", err)
	}
	defer manager.Stop()

	router := routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		State:         state,
		Auth:          authSvc,
		Catalog:       catalogSvc,
		Cart:          cartSvc,
		Orders:        ordersSvc,
		Employees:     employeesSvc,
		Reviews:       reviewsSvc,
		Notifications: notificationsSvc,
		Banners:       bannersSvc,
		Feedback:      feedbackSvc,
		Favorites:     favoritesSvc,
		Sessions:      manager,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
