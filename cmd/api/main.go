package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-analyst/internal/api/handlers"
	"github.com/dvloznov/statement-analyst/internal/api/middleware"
	"github.com/dvloznov/statement-analyst/internal/config"
	"github.com/dvloznov/statement-analyst/internal/gcsuploader"
	"github.com/dvloznov/statement-analyst/internal/llm"
	"github.com/dvloznov/statement-analyst/internal/logger"
	"github.com/dvloznov/statement-analyst/internal/pipeline"
	"github.com/dvloznov/statement-analyst/internal/session"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	var (
		port        = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		origins     = flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
		enableGCS   = flag.Bool("gcs", true, "Allow gs:// upload sources")
		shutdownFor = flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	)
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.RequireService(); err != nil {
		log.Fatal().Err(err).Msg("Extraction service is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	service, err := llm.NewGeminiService(ctx, llm.Options{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction service")
	}

	opts := []pipeline.Option{pipeline.WithJSONRepair(cfg.RepairModelJSON)}
	if *enableGCS {
		downloader, err := gcsuploader.NewDownloader(ctx, gcsuploader.Options{
			CredentialsFile: cfg.GCSCredentialsFile,
			MaxBytes:        cfg.MaxUploadBytes,
		})
		if err != nil {
			log.Warn().Err(err).Msg("No GCS client - gs:// uploads will be disabled")
		} else {
			defer downloader.Close()
			opts = append(opts, pipeline.WithStorage(downloader))
		}
	}

	registry := session.NewRegistry(pipeline.NewAnalyst(service, opts...))

	mux := http.NewServeMux()
	handlers.NewSessionsHandler(registry, cfg.MaxUploadBytes).Register(mux)

	c := cors.New(cors.Options{
		AllowedOrigins: splitOrigins(*origins),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600,
	})

	// Apply middleware
	handler := middleware.Chain(c.Handler(mux),
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
	)

	// Answers can take minutes, so the write timeout comes from config.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  time.Minute,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", *port).Str("model", cfg.Model).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.SessionIdleTimeout > 0 {
		g.Go(func() error {
			return registry.RunJanitor(gCtx, cfg.SessionSweep, cfg.SessionIdleTimeout)
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownFor)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited")
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
