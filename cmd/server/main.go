package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sendit-labs/sendit-server/internal/api"
	"github.com/sendit-labs/sendit-server/internal/api/handlers"
	"github.com/sendit-labs/sendit-server/internal/config"
	"github.com/sendit-labs/sendit-server/internal/repositories"
	"github.com/sendit-labs/sendit-server/internal/service"
)

func main() {
	cfg := config.Envs

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	db, err := repositories.Connect(cfg.DBURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	blobs, err := repositories.NewObjectStore(cfg.S3)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object store")
	}

	store := repositories.NewTransferRepository(db)
	transfers := service.NewTransfers(store, blobs, log.StandardLogger(), cfg.TransferTTL, cfg.MaxUploadBytes)
	sweeper := service.NewSweeper(store, blobs, log.StandardLogger())

	router := api.NewRouter(
		handlers.NewTransferHandler(transfers, cfg.MaxUploadBytes, log.StandardLogger()),
		handlers.NewCleanupHandler(sweeper, log.StandardLogger()),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
		// Whole-request timeouts would cut off multi-gigabyte transfers,
		// so only the header read is bounded here.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In-process trigger for the cleanup sweep; POST /api/v1/cleanup stays
	// available for external schedulers.
	go sweeper.Run(ctx, cfg.SweepInterval)

	go func() {
		log.WithField("port", cfg.Port).Info("starting sendit server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen and serve failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}
