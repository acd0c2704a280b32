package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fbetl/internal/domain"
	"fbetl/internal/infrastructure"
	"fbetl/internal/usecase"
	"fbetl/pkg/config"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
)

// One-shot extraction run for cron-style scheduling. The server binary
// exposes the same pipeline over HTTP.
func main() {
	var since, until string
	flag.StringVar(&since, "since", "", "start date (YYYY-MM-DD); overrides EXTRACT_SINCE")
	flag.StringVar(&until, "until", "", "end date (YYYY-MM-DD); overrides EXTRACT_UNTIL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if since == "" {
		since = cfg.Extract.Since
	}
	if until == "" {
		until = cfg.Extract.Until
	}

	rng, err := domain.NewDateRange(since, until)
	if err != nil {
		fmt.Printf("Invalid date range %q..%q: %v\n", since, until, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
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

	ctx := context.Background()

	rowRepo := infrastructure.NewRowRepository(log)
	var writer domain.RowWriter = rowRepo
	if cfg.Warehouse.PostgresDSN != "" {
		pg, err := infrastructure.NewPGWriter(ctx, cfg.Warehouse.PostgresDSN, cfg.Warehouse.StagingTable, log)
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

	outcomes, runErr := extractService.Run(ctx, cfg.Extract.AccountIDs, rng)
	for _, o := range outcomes {
		if o.Err != nil {
			log.WithError(o.Err).WithField("account_id", o.AccountID).Error("FAILED")
		} else {
			log.WithFields(map[string]any{
				"account_id": o.AccountID,
				"rows":       o.Rows,
			}).Info("SUCCESS")
		}
	}
	if runErr != nil {
		os.Exit(1)
	}
}
