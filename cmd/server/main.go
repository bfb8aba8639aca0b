package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/toricodesthings/credit-report-service/internal/config"
	"github.com/toricodesthings/credit-report-service/internal/extract"
	"github.com/toricodesthings/credit-report-service/internal/extractor"
	"github.com/toricodesthings/credit-report-service/internal/nlp"
	"github.com/toricodesthings/credit-report-service/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := nlp.Bootstrap(ctx, nlp.BootstrapConfig{
		Name:     cfg.ModelName,
		Dir:      cfg.ModelDir,
		URL:      cfg.ModelURL,
		Timeout:  cfg.ModelDownloadTimeout,
		MaxBytes: cfg.MaxModelBytes,
	}, logger)
	if err != nil {
		return err
	}

	srv := server.New(newExtractor(cfg, logger), model, server.Options{
		ModelName:             model.Name(),
		MaxUploadBytes:        cfg.MaxUploadBytes,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		RateLimitEvery:        cfg.RateLimitEvery,
		RateLimitBurst:        cfg.RateLimitBurst,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		CleanupInterval:       cfg.CleanupInterval,
	}, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go srv.RunHousekeeping(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("credit report service listening",
			"addr", httpSrv.Addr, "backend", cfg.PDFBackend, "model", model.Name())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newExtractor(cfg config.Config, logger *slog.Logger) extract.Extractor {
	if cfg.PDFBackend == config.BackendPoppler {
		return extract.NewPoppler(extractor.ExtractorConfig{
			PDFInfoTimeout:   cfg.PDFInfoTimeout,
			PDFToTextTimeout: cfg.PDFToTextTimeout,
		}, cfg.MaxPageWorkers, logger)
	}
	return extract.NewNative(logger)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
