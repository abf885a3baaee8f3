package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"workspace-backoffice/internal/config"
	"workspace-backoffice/internal/database"
	"workspace-backoffice/internal/handler"
	"workspace-backoffice/internal/infrastructure/mail"
	"workspace-backoffice/internal/infrastructure/payment"
	"workspace-backoffice/internal/metrics"
	"workspace-backoffice/internal/notify"
	"workspace-backoffice/internal/observability"
	"workspace-backoffice/internal/repo"
	"workspace-backoffice/internal/service"
	"workspace-backoffice/internal/worker"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orderRepo := repo.NewOrderRepo(db)
	variantRepo := repo.NewVariantRepo(db)
	userRepo := repo.NewUserRepo(db)
	addressRepo := repo.NewAddressRepo(db)
	historyRepo := repo.NewHistoryRepo(db)
	notificationRepo := repo.NewNotificationRepo(db)
	sessionRepo := repo.NewCheckoutSessionRepo(db)

	fanout := notify.NewFanout(userRepo, notificationRepo, mail.BasicRenderer{}, mail.LogSender{Logger: logger}, logger)

	var gateway payment.Gateway
	if cfg.StripeAPIKey != "" {
		gateway, err = payment.NewStripeGateway(cfg.StripeAPIKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
		if err != nil {
			logger.Fatal("stripe gateway", zap.Error(err))
		}
	} else {
		logger.Warn("no stripe key configured, using mock payment gateway")
		gateway = payment.NewMockGateway()
	}

	orderService := service.NewOrderService(db, orderRepo, variantRepo, userRepo, addressRepo, historyRepo, fanout, logger)
	checkoutService := service.NewCheckoutService(orderService, sessionRepo, variantRepo, gateway, "usd", logger)

	reconciler := worker.NewReconciliationWorker(
		sessionRepo, gateway, checkoutService,
		cfg.ReconcileInterval, cfg.SessionStaleAfter, logger,
	)
	go reconciler.Run(ctx)

	router := handler.NewRouter(handler.RouterDeps{
		Orders:        handler.NewOrderHandler(orderService, checkoutService),
		Notifications: handler.NewNotificationHandler(notificationRepo),
		Perms:         handler.AllowAll{},
		Health:        database.New(db, cfg.DBDatabase),
		Metrics:       metrics.NewServerMetrics(),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
