package domain

import "time"

// InsightFields is the exact field set requested from the insights endpoint.
// The reconciler depends on every entry; omitting one silently zeroes metrics.
var InsightFields = []string{
	"campaign_id", "campaign_name", "adset_id", "adset_name",
	"ad_id", "ad_name", "spend", "clicks", "impressions",
	"actions", "action_values", "cost_per_action_type",
	"video_play_actions", "video_p100_watched_actions",
	"video_avg_time_watched_actions", "date_start",
	"inline_link_clicks",
}

// ActionTuple is one upstream-reported (event type, value) pair. Values come
// over the wire as strings; numeric coercion happens at reconciliation time.
type ActionTuple struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// RawInsight is one page item from the insights endpoint for one ad/day.
// The schema drifts across API versions, so everything stays loosely typed
// until normalization.
type RawInsight struct {
	CampaignID          string        `json:"campaign_id"`
	CampaignName        string        `json:"campaign_name"`
	AdsetID             string        `json:"adset_id"`
	AdsetName           string        `json:"adset_name"`
	AdID                string        `json:"ad_id"`
	AdName              string        `json:"ad_name"`
	Spend               string        `json:"spend"`
	Clicks              string        `json:"clicks"`
	Impressions         string        `json:"impressions"`
	InlineLinkClicks    string        `json:"inline_link_clicks"`
	Actions             []ActionTuple `json:"actions"`
	ActionValues        []ActionTuple `json:"action_values"`
	CostPerActionType   []ActionTuple `json:"cost_per_action_type"`
	VideoPlayActions    []ActionTuple `json:"video_play_actions"`
	VideoP100Watched    []ActionTuple `json:"video_p100_watched_actions"`
	VideoAvgTimeWatched []ActionTuple `json:"video_avg_time_watched_actions"`
	DateStart           string        `json:"date_start"`
}

// AdRow is the canonical reconciled record for one ad on one calendar day.
// Scalar metrics are kept as decimal strings for direct columnar write.
type AdRow struct {
	AccountID    string `json:"account_id"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`

	ClicksAll   string `json:"clicks_all"`
	LinkClicks  string `json:"link_clicks"`
	AmountSpent string `json:"amount_spent"`
	Impressions string `json:"impressions"`

	VideoPlays           string `json:"video_plays"`
	VideoPlaysAt100      string `json:"video_plays_at_100_percent"`
	ThreeSecondPlays     string `json:"three_second_video_plays"`
	VideoAveragePlayTime string `json:"video_average_play_time"`

	Purchases               string `json:"purchases"`
	PurchasesValue          string `json:"purchases_conversion_value"`
	InitiatedCheckout       string `json:"initiated_checkout"`
	InitiatedCheckoutValue  string `json:"initiated_checkout_value"`
	AddToCart               string `json:"add_to_cart"`
	AddToCartValue          string `json:"add_to_cart_value"`

	CreativeFacebookURL  string `json:"creative_facebook_url"`
	CreativeThumbnailURL string `json:"creative_thumbnail_url"`

	// Reserved columns kept for warehouse schema stability.
	Country           string     `json:"country"`
	Currency          string     `json:"currency"`
	AdsetCreationTime *time.Time `json:"adset_creation_time"`

	Day time.Time `json:"day"`
}

// RowKey is the identity of one AdRow. No two rows in a result set may
// share a key.
type RowKey struct {
	AdID string
	Day  string
}

func (r *AdRow) Key() RowKey {
	return RowKey{AdID: r.AdID, Day: r.Day.Format("2006-01-02")}
}

// DateRange is an inclusive [Since, Until] span of calendar days.
type DateRange struct {
	Since time.Time
	Until time.Time
}

func NewDateRange(since, until string) (DateRange, error) {
	s, err := time.Parse("2006-01-02", since)
	if err != nil {
		return DateRange{}, err
	}
	u, err := time.Parse("2006-01-02", until)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Since: s, Until: u}, nil
}

// Days expands the range into the explicit set of days it spans.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Since; !d.After(r.Until); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
