package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/config"
	"github.com/kailas-cloud/msgdex/internal/db"
	dbRedis "github.com/kailas-cloud/msgdex/internal/db/redis"
	"github.com/kailas-cloud/msgdex/internal/domain"
	logpkg "github.com/kailas-cloud/msgdex/internal/logger"
	"github.com/kailas-cloud/msgdex/internal/metrics"
	"github.com/kailas-cloud/msgdex/internal/repository/embcache"
	"github.com/kailas-cloud/msgdex/internal/repository/jobrepo"
	"github.com/kailas-cloud/msgdex/internal/repository/searchrepo"
	"github.com/kailas-cloud/msgdex/internal/repository/segmentrepo"
	chiTransport "github.com/kailas-cloud/msgdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/msgdex/internal/transport/openai"
	"github.com/kailas-cloud/msgdex/internal/usecase/health"
	jobsuc "github.com/kailas-cloud/msgdex/internal/usecase/jobs"
	"github.com/kailas-cloud/msgdex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/msgdex/internal/usecase/search"
	"github.com/kailas-cloud/msgdex/internal/version"
)

const defaultVectorDim = 1536

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting msgdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey is wire-compatible with Redis; the same rueidis client
	// serves both drivers.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register application metrics explicitly (no init())
	metrics.Register()

	// Build embedder chain — composition root.
	// Without an embedding model the vector strategy is unavailable
	// and segments are indexed text-only.
	var (
		embedder     domain.Embedder
		embedHealth  health.EmbeddingChecker
		cacheEnabled = cfg.EmbeddingCacheEnabled()
	)
	if cfg.Embedding.Model != "" {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		embedder = base
		embedHealth = base
		if cacheEnabled {
			embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
		}
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
			zap.Bool("cache", cacheEnabled),
		)
	}

	vectorDim := cfg.Embedding.Dimensions
	if vectorDim == 0 {
		vectorDim = defaultVectorDim
	}

	// Repositories (domain-native, no adapters)
	ranker := ranking.New(ranking.Config{
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		VectorWeight:        cfg.Search.VectorWeight,
		KeywordWeight:       cfg.Search.KeywordWeight,
		Deduplicate:         cfg.DeduplicateEnabled(),
	})
	searchRepo := searchrepo.New(store, embedder, ranker, logger).WithHNSW(searchrepo.HNSWConfig{
		M:           cfg.Search.HNSWM,
		EFConstruct: cfg.Search.HNSWEFConstruct,
	})
	if err := searchRepo.EnsureIndex(ctx, vectorDim); err != nil {
		logger.Fatal("Failed to ensure message index", zap.Error(err))
	}

	segmentRepo := segmentrepo.New(store)
	jobRepo := jobrepo.New[jobsuc.SegmentationInput, jobsuc.SegmentationConfig](store)

	// Use case services
	searchSvc := searchuc.New(searchRepo, logger)
	jobsSvc := jobsuc.New(jobRepo, segmentRepo, searchRepo, embedder, logger).
		WithDefaults(jobsuc.SegmentationConfig{
			MinMessagesPerSegment:    cfg.Segmentation.MinMessagesPerSegment,
			MaxMessagesPerSegment:    cfg.Segmentation.MaxMessagesPerSegment,
			MaxTimeGap:               cfg.Segmentation.MaxTimeGap(),
			MaxSegmentLengthChars:    cfg.Segmentation.MaxSegmentLengthChars,
			TopicSimilarityThreshold: cfg.Segmentation.TopicThreshold,
		}, cfg.Jobs.MaxRetries)
	healthSvc := health.New(store, embedHealth)

	server := chiTransport.NewServer(searchSvc, jobsSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
