package infrastructure

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
)

const pgInsertBatch = 200

// PGWriter appends finished row sets to a Postgres staging table for the
// downstream warehouse load. Append-only: re-runs insert again, duplicates
// are the loader's concern.
type PGWriter struct {
	pool   *pgxpool.Pool
	table  string
	logger *logger.Logger
}

func NewPGWriter(ctx context.Context, dsn, table string, logger *logger.Logger) (*PGWriter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	return &PGWriter{pool: pool, table: table, logger: logger}, nil
}

func (w *PGWriter) Close() {
	w.pool.Close()
}

func (w *PGWriter) Write(ctx context.Context, accountID string, rows []domain.AdRow) error {
	if len(rows) == 0 {
		return nil
	}

	insert := `INSERT INTO ` + w.table + `
		(account_id, campaign_id, campaign_name, ad_id, ad_name, adset_id, adset_name,
		 clicks_all, link_clicks, amount_spent, impressions,
		 video_plays, video_plays_at_100_percent, three_second_video_plays, video_average_play_time,
		 purchases, purchases_conversion_value,
		 initiated_checkout, initiated_checkout_value,
		 add_to_cart, add_to_cart_value,
		 creative_facebook_url, country, currency, creative_thumbnail_url,
		 adset_creation_time, day)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`

	total := 0
	for i := 0; i < len(rows); i += pgInsertBatch {
		j := i + pgInsertBatch
		if j > len(rows) {
			j = len(rows)
		}

		b := &pgx.Batch{}
		for _, r := range rows[i:j] {
			b.Queue(insert,
				r.AccountID, r.CampaignID, r.CampaignName, r.AdID, r.AdName, r.AdsetID, r.AdsetName,
				r.ClicksAll, r.LinkClicks, r.AmountSpent, r.Impressions,
				r.VideoPlays, r.VideoPlaysAt100, r.ThreeSecondPlays, r.VideoAveragePlayTime,
				r.Purchases, r.PurchasesValue,
				r.InitiatedCheckout, r.InitiatedCheckoutValue,
				r.AddToCart, r.AddToCartValue,
				r.CreativeFacebookURL, r.Country, r.Currency, r.CreativeThumbnailURL,
				r.AdsetCreationTime, r.Day,
			)
		}

		br := w.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert staging rows: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
		"inserted":   total,
		"table":      w.table,
	}).Info("Appended rows to staging table")
	return nil
}

// MultiWriter fans one finished row set out to several writers.
type MultiWriter []domain.RowWriter

func (m MultiWriter) Write(ctx context.Context, accountID string, rows []domain.AdRow) error {
	for _, w := range m {
		if err := w.Write(ctx, accountID, rows); err != nil {
			return err
		}
	}
	return nil
}
