// cmd/florahub is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backyard-flora/florahub/internal/config"
	"github.com/backyard-flora/florahub/internal/database"
	"github.com/backyard-flora/florahub/internal/handler"
	"github.com/backyard-flora/florahub/internal/ledger"
	"github.com/backyard-flora/florahub/internal/metrics"
	"github.com/backyard-flora/florahub/internal/repository"
	"github.com/backyard-flora/florahub/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx := context.Background()
	cfg := config.FromEnv()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = log.With().Str("service", "florahub").Logger()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reservationMetrics := metrics.NewReservations(reg)

	marketRepo := repository.NewMarketRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)
	led := ledger.New(ledger.NewPostgresStore(pool))

	marketSvc := service.NewMarketService(marketRepo, inventoryRepo)
	cartSvc := service.NewCartService(led, reservationMetrics)

	marketHandler := handler.NewMarketHandler(marketSvc)
	cartHandler := handler.NewCartHandler(cartSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/markets", func(r chi.Router) {
		r.Post("/", marketHandler.CreateMarket)
		r.Get("/", marketHandler.ListMarkets)
		r.Get("/{id}", marketHandler.GetMarket)
		r.Post("/{id}/inventory", marketHandler.SubmitInventory)
		r.Get("/{id}/inventory", marketHandler.ListInventory)
		r.Post("/{id}/cart", cartHandler.Reserve)
		r.Get("/{id}/cart", cartHandler.ListCart)
		r.Get("/{id}/cart/count", cartHandler.CountCart)
	})
	r.Delete("/cart/items/{itemID}", cartHandler.Release)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
