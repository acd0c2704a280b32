package main

import (
	"context"
	"fmt"
	"os"

	"fbetl/internal/delivery"
	"fbetl/internal/domain"
	"fbetl/internal/infrastructure"
	"fbetl/internal/usecase"
	"fbetl/pkg/config"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting extraction server")

	m := metrics.New()

	graph := infrastructure.NewGraphClient(
		cfg.Facebook.BaseURL,
		cfg.Facebook.APIVersion,
		cfg.Facebook.AccessToken,
		cfg.Extract.PageLimit,
		cfg.Extract.RequestTimeout,
		log,
		m,
	)

	rowRepo := infrastructure.NewRowRepository(log)

	var writer domain.RowWriter = rowRepo
	if cfg.Warehouse.PostgresDSN != "" {
		pg, err := infrastructure.NewPGWriter(context.Background(), cfg.Warehouse.PostgresDSN, cfg.Warehouse.StagingTable, log)
		if err != nil {
			log.WithError(err).Error("Failed to connect to staging warehouse")
			os.Exit(1)
		}
		defer pg.Close()
		writer = infrastructure.MultiWriter{rowRepo, pg}
	}

	fetchService := usecase.NewFetchService(graph, log, m, cfg.Extract.MaxRetries, cfg.Extract.BackfillPause)
	enrichService := usecase.NewEnrichService(graph, log, m, cfg.Extract.CreativeWorkers, cfg.Extract.LookupTimeout)
	extractService := usecase.NewExtractService(fetchService, enrichService, writer, log, m, cfg.Extract.AccountWorkers)

	handlers := delivery.NewHTTPHandlers(extractService, rowRepo, cfg, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m)

	engine := router.SetupRoutes()

	log.WithField("port", cfg.Server.Port).Info("Listening")
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}
