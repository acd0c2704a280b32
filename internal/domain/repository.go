package domain

import (
	"context"
	"time"
)

// InsightsPager walks one report query's page cursor. Next returns the next
// page of items and whether more pages remain; returning ErrPagingDone is
// also treated as normal completion by callers.
type InsightsPager interface {
	Next(ctx context.Context) (items []RawInsight, more bool, err error)
}

// InsightsAPI initiates a per-ad daily insights query against the upstream
// platform for one account and inclusive date range.
type InsightsAPI interface {
	Insights(ctx context.Context, accountID string, since, until time.Time) (InsightsPager, error)
}

// CreativeAPI looks up creative metadata for a single ad.
type CreativeAPI interface {
	Creative(ctx context.Context, adID string) (CreativePayload, error)
}

// RowWriter receives an account's finished row set. Columnar serialization
// and the warehouse load job live behind this boundary.
type RowWriter interface {
	Write(ctx context.Context, accountID string, rows []AdRow) error
}

// RowRepository is the query side over extracted rows.
type RowRepository interface {
	RowWriter
	GetByAccount(ctx context.Context, accountID string) ([]AdRow, error)
	GetByDay(ctx context.Context, day time.Time) ([]AdRow, error)
	Accounts(ctx context.Context) ([]string, error)
}
