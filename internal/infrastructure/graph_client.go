package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fbetl/internal/domain"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"

	"golang.org/x/time/rate"
)

// GraphClient implements domain.InsightsAPI and domain.CreativeAPI against
// the Facebook Graph API. The client and its token are read-only and safe
// to share across concurrent account pipelines.
type GraphClient struct {
	client      *http.Client
	baseURL     string
	apiVersion  string
	accessToken string
	pageLimit   int
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
}

func NewGraphClient(
	baseURL, apiVersion, accessToken string,
	pageLimit int,
	timeout time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *GraphClient {
	return &GraphClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiVersion:  apiVersion,
		accessToken: accessToken,
		pageLimit:   pageLimit,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(10), 5),
	}
}

type insightsPage struct {
	Data   []domain.RawInsight `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type graphErrorEnvelope struct {
	Error *domain.GraphError `json:"error"`
}

// Insights initiates a per-ad daily report query. Initiation errors are the
// caller's retry surface; page traversal errors stay inside the pager.
func (c *GraphClient) Insights(ctx context.Context, accountID string, since, until time.Time) (domain.InsightsPager, error) {
	q := url.Values{}
	q.Set("fields", strings.Join(domain.InsightFields, ","))
	q.Set("level", "ad")
	q.Set("time_increment", "1")
	q.Set("limit", strconv.Itoa(c.pageLimit))
	q.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		since.Format("2006-01-02"), until.Format("2006-01-02")))
	q.Set("access_token", c.accessToken)

	u := fmt.Sprintf("%s/%s/act_%s/insights?%s", c.baseURL, c.apiVersion, accountID, q.Encode())

	page, err := c.getInsightsPage(ctx, u)
	if err != nil {
		return nil, err
	}

	return &graphPager{client: c, page: page}, nil
}

// graphPager walks paging.next links. The first page is fetched at
// initiation time so that its errors flow through the retry policy. A
// failure while loading a later page is held back one call so the current
// page's items are still delivered before the error surfaces.
type graphPager struct {
	client  *GraphClient
	page    *insightsPage
	nextErr error
	done    bool
}

func (p *graphPager) Next(ctx context.Context) ([]domain.RawInsight, bool, error) {
	if p.done {
		return nil, false, domain.ErrPagingDone
	}
	if p.nextErr != nil {
		p.done = true
		return nil, false, p.nextErr
	}

	items := p.page.Data
	next := p.page.Paging.Next
	if next == "" {
		p.done = true
		return items, false, nil
	}

	page, err := p.client.getInsightsPage(ctx, next)
	if err != nil {
		p.nextErr = err
		return items, true, nil
	}
	p.page = page
	return items, true, nil
}

func (c *GraphClient) getInsightsPage(ctx context.Context, rawURL string) (*insightsPage, error) {
	body, err := c.get(ctx, "insights", rawURL)
	if err != nil {
		return nil, err
	}

	var page insightsPage
	if err := json.Unmarshal(body, &page); err != nil {
		c.metrics.RecordAPIFailure("insights", "json_parse")
		return nil, fmt.Errorf("failed to parse insights page: %w", err)
	}
	return &page, nil
}

// Creative fetches the creative metadata for one ad.
func (c *GraphClient) Creative(ctx context.Context, adID string) (domain.CreativePayload, error) {
	q := url.Values{}
	q.Set("fields", "creative{object_story_spec,effective_object_story_id,thumbnail_url,image_url}")
	q.Set("access_token", c.accessToken)

	u := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.apiVersion, adID, q.Encode())

	body, err := c.get(ctx, "creative", u)
	if err != nil {
		return domain.CreativePayload{}, err
	}

	var resp struct {
		Creative domain.CreativePayload `json:"creative"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.RecordAPIFailure("creative", "json_parse")
		return domain.CreativePayload{}, fmt.Errorf("failed to parse creative: %w", err)
	}
	return resp.Creative, nil
}

// get performs one rate-limited request and maps non-200 responses onto
// the structured Graph error when the envelope decodes.
func (c *GraphClient) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordAPIFailure(endpoint, "rate_limit")
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		c.metrics.RecordAPIFailure(endpoint, "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordAPIFailure(endpoint, "network_error")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordAPIFailure(endpoint, "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordAPICall(endpoint, fmt.Sprintf("error_%d", resp.StatusCode), duration)

		var envelope graphErrorEnvelope
		if jerr := json.Unmarshal(body, &envelope); jerr == nil && envelope.Error != nil {
			return nil, envelope.Error
		}
		return nil, fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	c.metrics.RecordAPICall(endpoint, "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"endpoint": endpoint,
		"duration": duration,
	}).Debug("Graph API call succeeded")

	return body, nil
}
