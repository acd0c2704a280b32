package usecase

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"fbetl/internal/domain"
)

// Action-type alias chains. The upstream API has renamed these events
// across versions; each chain is tried in order and the first nonzero
// count wins.
var (
	purchaseValueTypes = []string{"purchase", "omni_purchase"}

	checkoutCountTypes = []string{
		"omni_initiated_checkout",
		"offsite_conversion.fb_pixel_initiate_checkout",
		"initiations",
	}

	addToCartValueTypes = []string{"omni_add_to_cart", "add_to_cart"}
)

// safeFloat coerces an upstream numeric string to a float. Parsing never
// fails upward; garbage becomes the default.
func safeFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// safeInt truncates like int(float) so "3.0" counts as 3.
func safeInt(s string) int {
	return int(safeFloat(s))
}

// countFor returns the integer value of the first tuple matching actionType.
// First match, not sum: duplicate tuples for one type are not expected and
// only the first is used.
func countFor(actions []domain.ActionTuple, actionType string) int {
	for _, a := range actions {
		if a.ActionType == actionType {
			return safeInt(a.Value)
		}
	}
	return 0
}

// countForAny walks an alias chain and returns the first nonzero count.
func countForAny(actions []domain.ActionTuple, actionTypes ...string) int {
	for _, t := range actionTypes {
		if n := countFor(actions, t); n != 0 {
			return n
		}
	}
	return 0
}

// revenueFor resolves a monetary value for one canonical metric. A direct,
// strictly positive value from actionValues wins; otherwise the upstream
// sometimes only exposes a per-event unit cost, so count x unit cost is the
// fallback, rounded to cents.
func revenueFor(actionValues, costPerAction []domain.ActionTuple, count int, candidates []string) float64 {
	for _, av := range actionValues {
		if containsType(candidates, av.ActionType) {
			if v := safeFloat(av.Value); v > 0 {
				return v
			}
		}
	}

	if count > 0 {
		for _, c := range costPerAction {
			if containsType(candidates, c.ActionType) {
				if v, ok := unitCostRevenue(count, c.Value); ok {
					return v
				}
			}
		}
	}

	return 0
}

// unitCostRevenue computes round(count x unitCost, 2) in decimal arithmetic
// so 3 x 40 never drifts into 119.99999....
func unitCostRevenue(count int, unitCost string) (float64, bool) {
	cpa, _, err := apd.NewFromString(strings.TrimSpace(unitCost))
	if err != nil {
		return 0, false
	}

	ctx := apd.BaseContext.WithPrecision(20)
	ctx.Rounding = apd.RoundHalfUp

	var out apd.Decimal
	if _, err := ctx.Mul(&out, cpa, apd.New(int64(count), 0)); err != nil {
		return 0, false
	}
	if _, err := ctx.Quantize(&out, &out, -2); err != nil {
		return 0, false
	}

	f, err := out.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// videoPlayCount sums every video_view tuple in the play-actions list. This
// one metric is summed, not first-match: the list legitimately repeats the
// type across breakdown rows.
func videoPlayCount(plays []domain.ActionTuple) int {
	total := 0
	for _, p := range plays {
		if p.ActionType == "video_view" {
			total += safeInt(p.Value)
		}
	}
	return total
}

// avgWatchSeconds converts the watch-time list from milliseconds to seconds.
// An empty list is exactly 0.
func avgWatchSeconds(watch []domain.ActionTuple) float64 {
	if len(watch) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range watch {
		total += safeFloat(w.Value)
	}
	return total / 1000.0
}

func containsType(types []string, t string) bool {
	for _, c := range types {
		if c == t {
			return true
		}
	}
	return false
}
