package performance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const scorePrecision = 2

var maxWeight = decimal.RequireFromString("9999.99")

func WeightedScore(score int, weight decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(score)).Mul(weight)
}

// TotalScore is the weighted average Σ(score·weight)/Σweight over items,
// rounded half-up to two places. It is nil when the weights sum to zero.
func TotalScore(items []ReviewItem) *decimal.Decimal {
	sumWeighted := decimal.Zero
	sumWeights := decimal.Zero
	for _, item := range items {
		sumWeighted = sumWeighted.Add(WeightedScore(item.Score, item.KPIWeight))
		sumWeights = sumWeights.Add(item.KPIWeight)
	}
	if sumWeights.IsZero() {
		return nil
	}
	total := sumWeighted.DivRound(sumWeights, scorePrecision)
	return &total
}

func validWeight(w decimal.Decimal) error {
	if w.IsNegative() {
		return invalid("weight", "must not be negative")
	}
	if w.GreaterThan(maxWeight) {
		return invalid("weight", "must not exceed "+maxWeight.StringFixed(scorePrecision))
	}
	if !w.Equal(w.Round(scorePrecision)) {
		return invalid("weight", "must have at most two decimal places")
	}
	return nil
}

func itemScore(index int, raw *decimal.Decimal) (int, error) {
	field := itemField(index, "score")
	switch {
	case raw == nil:
		return 0, invalid(field, "is required")
	case !raw.IsInteger():
		return 0, invalid(field, "must be a whole number")
	case raw.LessThan(decimal.NewFromInt(MinScore)):
		return 0, invalid(field, fmt.Sprintf("must be at least %d", MinScore))
	case raw.GreaterThan(decimal.NewFromInt(MaxScore)):
		return 0, invalid(field, fmt.Sprintf("must be at most %d", MaxScore))
	}
	return int(raw.IntPart()), nil
}
