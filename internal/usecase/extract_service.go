package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
	"fbetl/pkg/parallel"
)

// ExtractService runs the fetch -> backfill -> enrich pipeline per account
// and fans accounts out over a small worker bound.
type ExtractService struct {
	fetch          *FetchService
	enrich         *EnrichService
	writer         domain.RowWriter
	logger         *logger.Logger
	metrics        *metrics.Metrics
	accountWorkers int
}

// AccountOutcome is the per-account result of a run. Outcomes are observed
// independently: one account's failure never discards a sibling's rows.
type AccountOutcome struct {
	AccountID string        `json:"account_id"`
	Rows      int           `json:"rows"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

func NewExtractService(
	fetch *FetchService,
	enrich *EnrichService,
	writer domain.RowWriter,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	accountWorkers int,
) *ExtractService {
	return &ExtractService{
		fetch:          fetch,
		enrich:         enrich,
		writer:         writer,
		logger:         logger,
		metrics:        metrics,
		accountWorkers: accountWorkers,
	}
}

// RunAccount executes one account's full pipeline and hands the finished
// row set to the writer. Zero rows for the requested range is an
// operational failure, not a valid empty result.
func (s *ExtractService) RunAccount(ctx context.Context, accountID string, rng domain.DateRange) ([]domain.AdRow, error) {
	start := time.Now()
	s.metrics.IncExtractionsInProgress()
	defer s.metrics.DecExtractionsInProgress()

	log := s.logger.WithAccount(ctx, accountID)

	rows, err := s.fetch.FetchComplete(ctx, accountID, rng)
	if err != nil {
		s.metrics.RecordExtraction("failed", accountID, time.Since(start))
		return nil, fmt.Errorf("failed to fetch insights: %w", err)
	}
	if len(rows) == 0 {
		s.metrics.RecordExtraction("no_data", accountID, time.Since(start))
		return nil, fmt.Errorf("no rows for requested range: %w", domain.ErrNoData)
	}

	s.enrich.Enrich(ctx, accountID, rows)

	if err := s.writer.Write(ctx, accountID, rows); err != nil {
		s.metrics.RecordExtraction("failed", accountID, time.Since(start))
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}

	s.metrics.RecordExtraction("success", accountID, time.Since(start))
	s.metrics.RecordRows(accountID, len(rows))

	log.WithFields(map[string]any{
		"rows":     len(rows),
		"duration": time.Since(start),
	}).Info("Account extraction completed")

	return rows, nil
}

// Run extracts every account in parallel under the account worker bound
// and reports each outcome. Successes are always written; the returned
// error aggregates the accounts that failed.
func (s *ExtractService) Run(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]AccountOutcome, error) {
	log := s.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"accounts": len(accountIDs),
		"since":    rng.Since.Format("2006-01-02"),
		"until":    rng.Until.Format("2006-01-02"),
	}).Info("Starting extraction run")

	results := parallel.Map(ctx, s.accountWorkers, accountIDs, func(ctx context.Context, accountID string) (AccountOutcome, error) {
		start := time.Now()
		rows, err := s.RunAccount(ctx, accountID, rng)
		return AccountOutcome{
			AccountID: accountID,
			Rows:      len(rows),
			Duration:  time.Since(start),
			Err:       err,
		}, err
	})

	outcomes := make([]AccountOutcome, 0, len(results))
	var failures []error
	for _, res := range results {
		outcome := res.Value
		if outcome.AccountID == "" {
			// unit never started (cancelled before admission)
			outcome.AccountID = accountIDs[res.Index]
			outcome.Err = res.Err
		}
		outcomes = append(outcomes, outcome)

		if outcome.Err != nil {
			log.WithError(outcome.Err).WithField("account_id", outcome.AccountID).Error("Account extraction failed")
			failures = append(failures, fmt.Errorf("account %s: %w", outcome.AccountID, outcome.Err))
		} else {
			log.WithFields(map[string]any{
				"account_id": outcome.AccountID,
				"rows":       outcome.Rows,
			}).Info("Account extraction succeeded")
		}
	}

	log.WithFields(map[string]any{
		"succeeded": len(outcomes) - len(failures),
		"failed":    len(failures),
	}).Info("Extraction run finished")

	return outcomes, errors.Join(failures...)
}
