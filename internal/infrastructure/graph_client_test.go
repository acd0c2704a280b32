package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
)

var (
	testLogger  = logger.New("error")
	testMetrics = metrics.New()
)

func newTestClient(baseURL string) *GraphClient {
	return NewGraphClient(baseURL, "v21.0", "test-token", 500, 5*time.Second, testLogger, testMetrics)
}

func TestInsightsWalksAllPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "test-token", q.Get("access_token"))

		switch {
		case r.URL.Path == "/v21.0/act_123/insights":
			assert.Equal(t, "ad", q.Get("level"))
			assert.Equal(t, "1", q.Get("time_increment"))
			assert.Equal(t, "500", q.Get("limit"))
			assert.Contains(t, q.Get("fields"), "video_avg_time_watched_actions")
			assert.Contains(t, q.Get("time_range"), `"since":"2025-01-01"`)

			fmt.Fprintf(w, `{"data":[{"ad_id":"a1","date_start":"2025-01-01"}],"paging":{"next":"%s/page2"}}`, srv.URL)
		case r.URL.Path == "/page2":
			fmt.Fprint(w, `{"data":[{"ad_id":"a2","date_start":"2025-01-01"}],"paging":{}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pager, err := c.Insights(context.Background(), "123", day("2025-01-01"), day("2025-01-02"))
	require.NoError(t, err)

	var all []domain.RawInsight
	for {
		items, more, err := pager.Next(context.Background())
		require.NoError(t, err)
		all = append(all, items...)
		if !more {
			break
		}
	}

	require.Len(t, all, 2)
	assert.Equal(t, "a1", all[0].AdID)
	assert.Equal(t, "a2", all[1].AdID)

	// the cursor is exhausted now
	_, _, err = pager.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrPagingDone)
}

func TestInsightsMapsGraphErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"User request limit reached","type":"OAuthException","code":17}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Insights(context.Background(), "123", day("2025-01-01"), day("2025-01-01"))
	require.Error(t, err)

	var gerr *domain.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 17, gerr.Code)
	assert.True(t, gerr.Retryable())
}

func TestInsightsNonEnvelopeErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `upstream proxy had a bad day`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Insights(context.Background(), "123", day("2025-01-01"), day("2025-01-01"))
	require.Error(t, err)

	var gerr *domain.GraphError
	assert.False(t, errors.As(err, &gerr))
}

func TestInsightsPageErrorDeliversCurrentPageFirst(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v21.0/act_123/insights":
			fmt.Fprintf(w, `{"data":[{"ad_id":"a1","date_start":"2025-01-01"}],"paging":{"next":"%s/page2"}}`, srv.URL)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"boom","type":"ServerError","code":2}}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pager, err := c.Insights(context.Background(), "123", day("2025-01-01"), day("2025-01-01"))
	require.NoError(t, err)

	items, more, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, more)

	_, _, err = pager.Next(context.Background())
	require.Error(t, err)
	var gerr *domain.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 2, gerr.Code)
}

func TestCreativeParsesNestedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/a777", r.URL.Path)
		assert.Equal(t,
			"creative{object_story_spec,effective_object_story_id,thumbnail_url,image_url}",
			r.URL.Query().Get("fields"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "a777",
			"creative": map[string]any{
				"object_story_spec": map[string]any{
					"link_data": map[string]any{"link": "https://example.com/product"},
				},
				"effective_object_story_id": "111_222",
				"thumbnail_url":             "https://cdn/t.jpg",
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	payload, err := c.Creative(context.Background(), "a777")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/product", payload.ObjectStorySpec.LinkData.Link)
	assert.Equal(t, "111_222", payload.EffectiveObjectStoryID)
	assert.Equal(t, "https://cdn/t.jpg", payload.ThumbnailURL)
}

func TestCreativeErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"permission denied","type":"OAuthException","code":200}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Creative(context.Background(), "a777")
	require.Error(t, err)

	var gerr *domain.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.False(t, gerr.Retryable())
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}
