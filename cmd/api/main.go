package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/cardgateway/internal/bootstrap"
	"github.com/cassiomorais/cardgateway/internal/controller"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "cardgateway-api", "cardgateway", os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Build router ---
	server := app.Config.Server
	router := controller.NewRouter(controller.RouterDeps{
		ProviderName:       app.Config.Gateway.ProviderName,
		Gateway:            app.Gateway,
		Subscriptions:      app.Gateway,
		WidgetTokens:       app.Tokens,
		RedisClient:        app.Redis,
		Metrics:            app.Metrics,
		CORSConfig:         server.CORS,
		JWTSecret:          server.JWTSecret,
		RateLimitPerMinute: server.RateLimitPerMinute,
		Idempotency:        app.Idempotency,
		IdempotencyTTL:     server.IdempotencyTTL,
		Logger:             app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error().Err(err).Msg("Server stopped with error")
		app.Close()
		os.Exit(1)
	}
	app.Logger.Info().Msg("Server exited")
}
