// Package main запускает HTTP-сервер витрины магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/taash/storefront-system/internal/cart"
	"github.com/taash/storefront-system/internal/checkout"
	"github.com/taash/storefront-system/internal/config"
	"github.com/taash/storefront-system/internal/handler"
	"github.com/taash/storefront-system/internal/identity"
	"github.com/taash/storefront-system/internal/ledger"
	"github.com/taash/storefront-system/internal/middleware"
	"github.com/taash/storefront-system/internal/repository"
	"github.com/taash/storefront-system/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProject}, opts...)
	if err != nil {
		sugar.Fatalw("firebase initialization error", "error", err.Error())
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		sugar.Fatalw("auth client initialization error", "error", err.Error())
	}

	fsClient, err := firestore.NewClient(ctx, cfg.FirestoreProject, opts...)
	if err != nil {
		sugar.Fatalw("firestore initialization error", "error", err.Error())
	}
	defer fsClient.Close()

	orderLedger := ledger.NewFirestoreLedger(fsClient)
	identityClient := identity.NewClient(cfg.IdentityAddress, cfg.IdentityAPIKey)

	carts := cart.NewStore(cfg.StoreName, repo, logger)
	coordinator := checkout.NewCoordinator(orderLedger, carts, logger)
	guard := session.NewGuard(identityClient, authClient, orderLedger, repo, cfg.StoreName, logger)

	authMiddleware := middleware.NewAuthMiddleware("storefront-secret")
	h := handler.NewHandler(guard, carts, coordinator, orderLedger, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
