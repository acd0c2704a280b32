package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
)

// RowRepository is an in-memory implementation of domain.RowRepository. It
// doubles as the default RowWriter and backs the query API.
type RowRepository struct {
	data   map[string][]domain.AdRow
	mutex  sync.RWMutex
	logger *logger.Logger
}

func NewRowRepository(logger *logger.Logger) *RowRepository {
	return &RowRepository{
		data:   make(map[string][]domain.AdRow),
		logger: logger,
	}
}

// Write replaces the account's row set. The pipeline appends per run; a
// re-run of the same range overwrites rather than duplicating.
func (r *RowRepository) Write(ctx context.Context, accountID string, rows []domain.AdRow) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data[accountID] = rows

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
		"count":      len(rows),
	}).Info("Stored rows in memory")
	return nil
}

func (r *RowRepository) GetByAccount(ctx context.Context, accountID string) ([]domain.AdRow, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rows := r.data[accountID]
	out := make([]domain.AdRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *RowRepository) GetByDay(ctx context.Context, day time.Time) ([]domain.AdRow, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	dayKey := day.Format("2006-01-02")
	var out []domain.AdRow
	for _, rows := range r.data {
		for _, row := range rows {
			if row.Day.Format("2006-01-02") == dayKey {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *RowRepository) Accounts(ctx context.Context) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	accounts := make([]string, 0, len(r.data))
	for acc := range r.data {
		accounts = append(accounts, acc)
	}
	sort.Strings(accounts)
	return accounts, nil
}
