package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbetl/internal/domain"
)

type fakeCreativeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	payloads map[string]domain.CreativePayload
	errs     map[string]error
	block    bool
}

func (f *fakeCreativeAPI) Creative(ctx context.Context, adID string) (domain.CreativePayload, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[adID]++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return domain.CreativePayload{}, ctx.Err()
	}
	if err := f.errs[adID]; err != nil {
		return domain.CreativePayload{}, err
	}
	return f.payloads[adID], nil
}

func linkPayload(link string) domain.CreativePayload {
	var p domain.CreativePayload
	p.ObjectStorySpec.LinkData.Link = link
	p.ThumbnailURL = "https://cdn/thumb.jpg"
	return p
}

func newTestEnrichService(api domain.CreativeAPI) *EnrichService {
	return NewEnrichService(api, testLogger, testMetrics, 4, 50*time.Millisecond)
}

func TestEnrichFillsCreativeFieldsByAdID(t *testing.T) {
	api := &fakeCreativeAPI{payloads: map[string]domain.CreativePayload{
		"a1": linkPayload("https://example.com/landing"),
	}}
	s := newTestEnrichService(api)

	rows := []domain.AdRow{
		{AdID: "a1", Day: day("2025-01-01")},
		{AdID: "a1", Day: day("2025-01-02")},
		{AdID: "a2", Day: day("2025-01-01")},
	}
	s.Enrich(context.Background(), "acc1", rows)

	assert.Equal(t, "https://example.com/landing", rows[0].CreativeFacebookURL)
	assert.Equal(t, "https://example.com/landing", rows[1].CreativeFacebookURL)
	assert.Equal(t, "https://cdn/thumb.jpg", rows[0].CreativeThumbnailURL)

	// a2 had no payload: empty result, never an error
	assert.Empty(t, rows[2].CreativeFacebookURL)
	assert.Empty(t, rows[2].CreativeThumbnailURL)
}

func TestEnrichLooksUpDistinctAdIDsOnce(t *testing.T) {
	api := &fakeCreativeAPI{}
	s := newTestEnrichService(api)

	rows := []domain.AdRow{
		{AdID: "a1", Day: day("2025-01-01")},
		{AdID: "a1", Day: day("2025-01-02")},
		{AdID: "a1", Day: day("2025-01-03")},
		{AdID: "", Day: day("2025-01-01")},
	}
	s.Enrich(context.Background(), "acc1", rows)

	assert.Equal(t, map[string]int{"a1": 1}, api.calls)
}

func TestEnrichLookupFailureYieldsEmptyFields(t *testing.T) {
	api := &fakeCreativeAPI{errs: map[string]error{"a1": errors.New("status 500")}}
	s := newTestEnrichService(api)

	rows := []domain.AdRow{{AdID: "a1", Day: day("2025-01-01")}}
	s.Enrich(context.Background(), "acc1", rows)

	assert.Empty(t, rows[0].CreativeFacebookURL)
	assert.Empty(t, rows[0].CreativeThumbnailURL)
}

func TestEnrichLookupTimeoutDoesNotFailTheJoin(t *testing.T) {
	api := &fakeCreativeAPI{block: true}
	s := newTestEnrichService(api)

	rows := []domain.AdRow{
		{AdID: "a1", Day: day("2025-01-01")},
	}

	done := make(chan struct{})
	go func() {
		s.Enrich(context.Background(), "acc1", rows)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enrichment did not complete after lookup timeout")
	}

	assert.Empty(t, rows[0].CreativeFacebookURL)
	assert.Empty(t, rows[0].CreativeThumbnailURL)
}

func TestEnrichIsIdempotent(t *testing.T) {
	api := &fakeCreativeAPI{payloads: map[string]domain.CreativePayload{
		"a1": linkPayload("https://example.com/landing"),
	}}
	s := newTestEnrichService(api)

	rows := []domain.AdRow{{AdID: "a1", Day: day("2025-01-01")}}
	s.Enrich(context.Background(), "acc1", rows)
	first := rows[0]

	s.Enrich(context.Background(), "acc1", rows)
	assert.Equal(t, first, rows[0])
}

func TestCreativeResultPrecedence(t *testing.T) {
	var p domain.CreativePayload
	p.ObjectStorySpec.LinkData.Link = "https://example.com/link"
	p.ObjectStorySpec.VideoData.Link = "https://example.com/video"
	p.EffectiveObjectStoryID = "123_456"
	p.ThumbnailURL = "https://cdn/t.jpg"
	p.ImageURL = "https://cdn/i.jpg"

	got := creativeResult("a1", p)
	assert.Equal(t, "https://example.com/link", got.StoryURL)
	assert.Equal(t, "https://cdn/t.jpg", got.ThumbnailURL)

	p.ObjectStorySpec.LinkData.Link = ""
	got = creativeResult("a1", p)
	assert.Equal(t, "https://example.com/video", got.StoryURL)

	p.ObjectStorySpec.VideoData.Link = ""
	got = creativeResult("a1", p)
	assert.Equal(t, "https://www.facebook.com/123_456", got.StoryURL)

	p.ThumbnailURL = ""
	got = creativeResult("a1", p)
	assert.Equal(t, "https://cdn/i.jpg", got.ThumbnailURL)

	p.EffectiveObjectStoryID = ""
	p.ImageURL = ""
	got = creativeResult("a1", p)
	assert.Empty(t, got.StoryURL)
	assert.Empty(t, got.ThumbnailURL)
}

func TestCreativeResultEmptyPayload(t *testing.T) {
	got := creativeResult("a1", domain.CreativePayload{})
	require.Equal(t, domain.CreativeResult{AdID: "a1"}, got)
}
