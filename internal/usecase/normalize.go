package usecase

import (
	"strconv"
	"time"

	"fbetl/internal/domain"
)

// normalizeRow maps one raw insight plus reconciled metrics into the
// canonical row shape. Creative fields start empty and are filled later by
// the enrichment join; Country, Currency and AdsetCreationTime are reserved
// warehouse columns.
func normalizeRow(raw domain.RawInsight, accountID string) domain.AdRow {
	purchases := countFor(raw.Actions, "purchase")
	purchaseValue := revenueFor(raw.ActionValues, raw.CostPerActionType, purchases, purchaseValueTypes)

	initiatedCheckout := countForAny(raw.Actions, checkoutCountTypes...)
	initiatedCheckoutValue := revenueFor(raw.ActionValues, raw.CostPerActionType, initiatedCheckout, checkoutCountTypes)

	addToCart := countFor(raw.Actions, "add_to_cart")
	addToCartValue := revenueFor(raw.ActionValues, raw.CostPerActionType, addToCart, addToCartValueTypes)

	threeSecViews := countFor(raw.Actions, "video_view")
	videoFullViews := countFor(raw.VideoP100Watched, "video_p100_watched")

	return domain.AdRow{
		AccountID:    accountID,
		CampaignID:   raw.CampaignID,
		CampaignName: raw.CampaignName,
		AdID:         raw.AdID,
		AdName:       raw.AdName,
		AdsetID:      raw.AdsetID,
		AdsetName:    raw.AdsetName,

		ClicksAll:   formatFloat(safeFloat(raw.Clicks)),
		LinkClicks:  formatFloat(safeFloat(raw.InlineLinkClicks)),
		AmountSpent: formatFloat(safeFloat(raw.Spend)),
		Impressions: formatFloat(safeFloat(raw.Impressions)),

		VideoPlays:           strconv.Itoa(videoPlayCount(raw.VideoPlayActions)),
		VideoPlaysAt100:      strconv.Itoa(videoFullViews),
		ThreeSecondPlays:     strconv.Itoa(threeSecViews),
		VideoAveragePlayTime: formatFloat(avgWatchSeconds(raw.VideoAvgTimeWatched)),

		Purchases:              strconv.Itoa(purchases),
		PurchasesValue:         formatFloat(purchaseValue),
		InitiatedCheckout:      strconv.Itoa(initiatedCheckout),
		InitiatedCheckoutValue: formatFloat(initiatedCheckoutValue),
		AddToCart:              strconv.Itoa(addToCart),
		AddToCartValue:         formatFloat(addToCartValue),

		Day: parseDay(raw.DateStart),
	}
}

// formatFloat renders a metric as decimal-string text for columnar write.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDay reads the leading YYYY-MM-DD of an upstream date string; a bad
// or missing date yields the zero time, which dedup and backfill treat as
// an unobserved day.
func parseDay(s string) time.Time {
	if len(s) < 10 {
		return time.Time{}
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}
	}
	return d
}
