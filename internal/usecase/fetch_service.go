package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
	"fbetl/pkg/retry"
)

// FetchService walks the insights cursor for one account and date range,
// deduplicates by identity key and repairs missing days.
type FetchService struct {
	api           domain.InsightsAPI
	logger        *logger.Logger
	metrics       *metrics.Metrics
	policy        retry.Policy
	backfillPause time.Duration

	// sleep is injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetchService(
	api domain.InsightsAPI,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	maxRetries int,
	backfillPause time.Duration,
) *FetchService {
	s := &FetchService{
		api:           api,
		logger:        logger,
		metrics:       metrics,
		backfillPause: backfillPause,
		sleep:         sleepCtx,
	}
	s.policy = retry.Policy{
		MaxAttempts: maxRetries,
		Classify:    classifyFetchError,
		Transient:   retry.Exponential(2*time.Second, 60*time.Second),
		Unknown:     retry.Linear(2 * time.Second),
		Sleep: func(ctx context.Context, d time.Duration) error {
			return s.sleep(ctx, d)
		},
	}
	return s
}

// classifyFetchError: upstream codes on the allow-list get exponential
// backoff, other upstream codes fail immediately, anything else (network,
// decode) gets the linear fallback.
func classifyFetchError(err error) retry.Class {
	var gerr *domain.GraphError
	if errors.As(err, &gerr) {
		if gerr.Retryable() {
			return retry.Transient
		}
		return retry.Fatal
	}
	return retry.Unknown
}

// Fetch returns the deduplicated row set for [since, until]. The retry
// policy wraps the initiation of the whole fetch, not individual pages.
func (s *FetchService) Fetch(ctx context.Context, accountID string, since, until time.Time) ([]domain.AdRow, error) {
	var rows []domain.AdRow

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		rows, ferr = s.fetchOnce(ctx, accountID, since, until)
		if ferr != nil {
			s.metrics.RecordRetry(classLabel(ferr))
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func classLabel(err error) string {
	switch classifyFetchError(err) {
	case retry.Transient:
		return "transient"
	case retry.Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// fetchOnce runs one full cursor traversal. A page-level error truncates
// the traversal and returns whatever accumulated: gaps are caught by the
// backfill pass, so partial data is acceptable here.
func (s *FetchService) fetchOnce(ctx context.Context, accountID string, since, until time.Time) ([]domain.AdRow, error) {
	log := s.logger.WithAccount(ctx, accountID)

	pager, err := s.api.Insights(ctx, accountID, since, until)
	if err != nil {
		return nil, err
	}

	var rows []domain.AdRow
	seen := make(map[domain.RowKey]struct{})

	for {
		items, more, err := pager.Next(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrPagingDone) {
				break
			}
			log.WithError(err).Error("Page error, keeping rows gathered so far")
			s.metrics.RecordAPIFailure("insights", "page_error")
			break
		}

		for _, item := range items {
			row := normalizeRow(item, accountID)
			key := row.Key()
			if _, dup := seen[key]; dup {
				s.metrics.RecordDuplicate(accountID)
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, row)
		}

		if !more {
			break
		}
	}

	return rows, nil
}

// FetchComplete runs the range fetch and then repairs any missing days with
// single-day fetches, keeping the identity-key invariant across the merge.
func (s *FetchService) FetchComplete(ctx context.Context, accountID string, rng domain.DateRange) ([]domain.AdRow, error) {
	log := s.logger.WithAccount(ctx, accountID)
	log.WithFields(map[string]any{
		"since": rng.Since.Format("2006-01-02"),
		"until": rng.Until.Format("2006-01-02"),
	}).Info("Fetching insights")

	rows, err := s.Fetch(ctx, accountID, rng.Since, rng.Until)
	if err != nil {
		return nil, err
	}

	if len(rows) > 0 {
		rows = s.backfill(ctx, accountID, rng, rows)
	}

	log.WithField("rows", len(rows)).Info("Fetch complete")
	return rows, nil
}

// backfill re-fetches each missing day individually, in ascending order,
// with a short pause between calls to ease rate-limit pressure. A day that
// still returns nothing stays absent; that is logged, never fatal.
func (s *FetchService) backfill(ctx context.Context, accountID string, rng domain.DateRange, rows []domain.AdRow) []domain.AdRow {
	log := s.logger.WithAccount(ctx, accountID)

	observed := make(map[string]struct{})
	seen := make(map[domain.RowKey]struct{})
	for _, r := range rows {
		seen[r.Key()] = struct{}{}
		if !r.Day.IsZero() {
			observed[r.Day.Format("2006-01-02")] = struct{}{}
		}
	}

	var missing []time.Time
	for _, d := range rng.Days() {
		if _, ok := observed[d.Format("2006-01-02")]; !ok {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return rows
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Before(missing[j]) })

	log.WithField("missing_days", len(missing)).Info("Filling missing dates")

	for i, day := range missing {
		dayRows, err := s.Fetch(ctx, accountID, day, day)
		if err != nil {
			log.WithError(err).WithField("day", day.Format("2006-01-02")).Warn("Backfill fetch failed, day stays absent")
			s.metrics.RecordBackfillDay(accountID, "failed")
			continue
		}
		s.metrics.RecordBackfillDay(accountID, "success")

		for _, r := range dayRows {
			key := r.Key()
			if _, dup := seen[key]; dup {
				s.metrics.RecordDuplicate(accountID)
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, r)
		}

		if i < len(missing)-1 {
			if err := s.sleep(ctx, s.backfillPause); err != nil {
				break
			}
		}
	}

	return rows
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
