package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"imagestudio/internal/http/handlers"
	httpapi "imagestudio/internal/http/httpapi"
	"imagestudio/internal/infra"
	"imagestudio/internal/infra/geoip"
	"imagestudio/internal/middleware"
	"imagestudio/internal/providers/openai"
	"imagestudio/internal/session"
)

const sweepInterval = time.Minute

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	providerLog := logger.With().Str("component", "openai").Logger()
	client := openai.NewClient(openai.Options{
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.ChatModel,
		ImageModel: cfg.ImageModel,
		Logger:     &providerLog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(client, client, cfg.SessionTTL, logger)
	go store.Run(ctx, sweepInterval)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	go limiter.Run(ctx, sweepInterval)

	app := handlers.NewApp(logger, store, client)
	router := httpapi.NewRouter(httpapi.Deps{
		Config:        cfg,
		Logger:        logger,
		App:           app,
		Limiter:       limiter,
		CountryLookup: resolver.Lookup(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("chat_model", client.ChatModel()).
			Str("image_model", client.ImageModel()).
			Msg("imagestudio listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPWriteTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
