// Command server runs the AskMyNotes HTTP API.
//
//	@title			AskMyNotes API
//	@version		1.0
//	@description	Upload study notes and ask questions answered strictly from them.
//	@BasePath		/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/askmynotes-backend/internal/blob"
	"github.com/tbourn/askmynotes-backend/internal/cache"
	"github.com/tbourn/askmynotes-backend/internal/config"
	httpapi "github.com/tbourn/askmynotes-backend/internal/http"
	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/observability"
	"github.com/tbourn/askmynotes-backend/internal/repo"
	"github.com/tbourn/askmynotes-backend/internal/services"
	"github.com/tbourn/askmynotes-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.InitLogger(sysutil.LoggerOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: version,
	})

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	deps := httpapi.Deps{DB: db}

	var gcs *blob.GCS
	if cfg.GCS.Bucket != "" {
		gcs, err = blob.NewGCS(ctx, cfg.GCS.Bucket, cfg.GCS.EmulatorHost)
		if err != nil {
			log.Warn().Err(err).Str("bucket", cfg.GCS.Bucket).Msg("blob storage disabled")
		} else {
			deps.Blobs = gcs
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("context cache disabled")
		} else {
			deps.Cache = cache.NewContextCache(rdb, cfg.Redis.ContextTTL)
		}
	}

	if cfg.LLM.Enabled() {
		model, err := llm.NewOpenAI(llm.Options{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.ChatModel,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("model client failed")
		}
		deps.Model = model
	} else {
		log.Warn().Msg("LLM_API_KEY not set; chat and study routes will answer 503")
	}

	recorder := &services.HistoryRecorder{
		DB:             db,
		Timeout:        cfg.HistoryTimeout,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	deps.History = recorder

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Bool("model", cfg.LLM.Enabled()).
			Bool("blobs", deps.Blobs != nil).
			Bool("cache", deps.Cache != nil).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	// Pending history writes belong to requests that were already answered.
	if err := recorder.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("history writes still pending at exit")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
	if gcs != nil {
		if err := gcs.Close(); err != nil {
			log.Warn().Err(err).Msg("blob client close failed")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
