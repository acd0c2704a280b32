package usecase

import (
	"context"
	"time"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
	"fbetl/pkg/parallel"
)

// EnrichService joins creative metadata onto a row set. Lookups run over
// the distinct ad identifiers under a counting admission gate; every
// failure degrades to empty creative fields, never an error.
type EnrichService struct {
	api           domain.CreativeAPI
	logger        *logger.Logger
	metrics       *metrics.Metrics
	workers       int
	lookupTimeout time.Duration
}

func NewEnrichService(
	api domain.CreativeAPI,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	workers int,
	lookupTimeout time.Duration,
) *EnrichService {
	return &EnrichService{
		api:           api,
		logger:        logger,
		metrics:       metrics,
		workers:       workers,
		lookupTimeout: lookupTimeout,
	}
}

// Enrich fills the creative fields of every row in place. Rows whose ad id
// had no successful lookup keep empty fields. Running it twice with the
// same upstream responses yields identical rows.
func (s *EnrichService) Enrich(ctx context.Context, accountID string, rows []domain.AdRow) {
	adIDs := distinctAdIDs(rows)
	if len(adIDs) == 0 {
		return
	}

	log := s.logger.WithAccount(ctx, accountID)
	log.WithField("creatives", len(adIDs)).Info("Enriching creatives")

	results := parallel.Map(ctx, s.workers, adIDs, s.lookupOne)

	mapping := make(map[string]domain.CreativeResult, len(results))
	for _, res := range results {
		// lookupOne never returns an error; guard anyway
		if res.Err != nil {
			continue
		}
		mapping[res.Value.AdID] = res.Value
	}

	for i := range rows {
		if cr, ok := mapping[rows[i].AdID]; ok {
			rows[i].CreativeFacebookURL = cr.StoryURL
			rows[i].CreativeThumbnailURL = cr.ThumbnailURL
		}
	}
}

// lookupOne resolves one ad's creative under its own timeout. Transport
// failures, non-success statuses and malformed payloads all collapse into
// an empty result so one bad creative cannot fail the join.
func (s *EnrichService) lookupOne(ctx context.Context, adID string) (domain.CreativeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	payload, err := s.api.Creative(ctx, adID)
	if err != nil {
		s.metrics.RecordEnrichmentLookup("failed")
		return domain.CreativeResult{AdID: adID}, nil
	}

	s.metrics.RecordEnrichmentLookup("success")
	return creativeResult(adID, payload), nil
}

// creativeResult extracts the story and thumbnail URLs from a creative
// payload: link-type story first, then video-type, then a canonical URL
// constructed from the effective story id; thumbnail prefers the explicit
// thumbnail field over the image field.
func creativeResult(adID string, p domain.CreativePayload) domain.CreativeResult {
	storyURL := p.ObjectStorySpec.LinkData.Link
	if storyURL == "" {
		storyURL = p.ObjectStorySpec.VideoData.Link
	}
	if storyURL == "" && p.EffectiveObjectStoryID != "" {
		storyURL = "https://www.facebook.com/" + p.EffectiveObjectStoryID
	}

	thumb := p.ThumbnailURL
	if thumb == "" {
		thumb = p.ImageURL
	}

	return domain.CreativeResult{
		AdID:         adID,
		StoryURL:     storyURL,
		ThumbnailURL: thumb,
	}
}

func distinctAdIDs(rows []domain.AdRow) []string {
	seen := make(map[string]struct{}, len(rows))
	var ids []string
	for _, r := range rows {
		if r.AdID == "" {
			continue
		}
		if _, ok := seen[r.AdID]; ok {
			continue
		}
		seen[r.AdID] = struct{}{}
		ids = append(ids, r.AdID)
	}
	return ids
}
