package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnav/capsera/internal/api"
	"github.com/arnav/capsera/internal/api/handlers"
	"github.com/arnav/capsera/internal/config"
	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/repository"
	"github.com/arnav/capsera/internal/service"
	"github.com/arnav/capsera/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Mode == "debug" {
		logLevel = "debug"
		logFormat = "text"
	}
	log := logger.New(&logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		ServiceName: "capsera",
	})
	logger.SetDefaultLogger(log)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	captionRepo := repository.NewCaptionRepository(db)

	store, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	bucketCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := store.EnsureBucket(bucketCtx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}

	vision, err := service.NewVisionService(&service.VisionServiceConfig{
		Model:     cfg.Vision.Model,
		APIKeys:   cfg.Vision.Keys(),
		BaseURL:   cfg.Vision.BaseURL,
		MaxTokens: cfg.Vision.MaxTokens,
		Timeout:   cfg.Vision.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vision client: %w", err)
	}

	captionSvc := service.NewCaptionService(vision, captionRepo, store, log)
	quotaSvc := service.NewQuotaService(captionRepo, &service.QuotaServiceConfig{
		DailyLimit:       cfg.Quota.DailyLimit,
		FailOpen:         cfg.Quota.FailOpen,
		UTCOffsetMinutes: cfg.Quota.UTCOffsetMinutes,
	}, log)

	router := api.NewRouter(&cfg.Server, log, &api.Handlers{
		Caption: handlers.NewCaptionHandler(captionSvc, quotaSvc, store),
		Upload:  handlers.NewUploadHandler(store, cfg.Upload.MaxSizeBytes),
		Quota:   handlers.NewQuotaHandler(quotaSvc, captionSvc),
		Health:  handlers.NewHealthHandler(captionRepo, store, vision),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
