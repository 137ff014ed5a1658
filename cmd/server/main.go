package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/vsharee/vsharee/internal/adapters/http"
	wssignal "github.com/vsharee/vsharee/internal/adapters/signal"
	"github.com/vsharee/vsharee/internal/app"
	"github.com/vsharee/vsharee/internal/auth"
	"github.com/vsharee/vsharee/internal/config"
	"github.com/vsharee/vsharee/internal/media"
	"github.com/vsharee/vsharee/internal/metrics"
	"github.com/vsharee/vsharee/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var (
		membership store.MembershipStore
		messages   store.MessageStore
		users      store.UserStore
	)
	switch cfg.Store.Backend {
	case "redis":
		client, err := store.NewRedisClient(ctx, cfg.Store.Redis.Address, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect")
		}
		defer client.Close()
		rs := store.NewRedisStore(client, cfg.Store.HistoryCap)
		membership, messages, users = rs, rs, rs
	default:
		ms := store.NewMemoryStore()
		membership, messages, users = ms, ms, ms
		log.Warn().Msg("using in-memory store, state will not survive restarts")
	}

	var issuer app.MediaTokenIssuer
	if cfg.Media.Enabled {
		issuer = media.NewTokenIssuer(cfg.Media.APIKey, cfg.Media.APISecret, cfg.Media.URL, cfg.Media.TokenTTL)
	}

	registry := app.NewRegistry()
	presence := app.NewPresence(registry, membership, issuer)
	relay := app.NewRelay(registry, membership, messages)
	monitor := app.NewMonitor(registry, cfg.WebSocket.StaleAfter)
	go monitor.Run(ctx, cfg.WebSocket.SampleInterval)

	resolver := auth.NewJWTResolver(cfg.Auth.Secret, users)
	ctl := wssignal.NewController(registry, presence, relay, monitor, &cfg.WebSocket)

	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	r := router.SetupRouter(ctx, cfg, ctl, resolver, registry)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("coordinator started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
