package performance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func item(score int, weight string) ReviewItem {
	return ReviewItem{Score: score, KPIWeight: decimal.RequireFromString(weight)}
}

func TestTotalScore(t *testing.T) {
	tests := []struct {
		name  string
		items []ReviewItem
		want  string
	}{
		{name: "weighted average", items: []ReviewItem{item(80, "2"), item(50, "1")}, want: "70.00"},
		{name: "single item", items: []ReviewItem{item(93, "0.5")}, want: "93.00"},
		{name: "repeating quotient", items: []ReviewItem{item(1, "1"), item(2, "2")}, want: "1.67"},
		{name: "half rounds up", items: []ReviewItem{item(1, "1"), item(0, "7")}, want: "0.13"},
		{name: "zero weight item ignored", items: []ReviewItem{item(100, "0"), item(40, "3")}, want: "40.00"},
		{name: "all weights zero", items: []ReviewItem{item(100, "0"), item(10, "0")}},
		{name: "no items"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalScore(tc.items)
			if tc.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestWeightedScore(t *testing.T) {
	require.Equal(t, "160", WeightedScore(80, decimal.NewFromInt(2)).String())
	require.Equal(t, "37.5", WeightedScore(75, decimal.RequireFromString("0.5")).String())
}

func TestValidWeight(t *testing.T) {
	require.NoError(t, validWeight(decimal.Zero))
	require.NoError(t, validWeight(decimal.RequireFromString("9999.99")))
	require.NoError(t, validWeight(decimal.RequireFromString("1.50")))
	require.ErrorIs(t, validWeight(decimal.NewFromInt(-1)), ErrValidation)
	require.ErrorIs(t, validWeight(decimal.RequireFromString("10000")), ErrValidation)
	require.ErrorIs(t, validWeight(decimal.RequireFromString("1.005")), ErrValidation)
}

func TestItemScore(t *testing.T) {
	dec := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name   string
		raw    *decimal.Decimal
		want   int
		reason string
	}{
		{name: "whole number", raw: dec("80"), want: 80},
		{name: "trailing zero fraction", raw: dec("80.0"), want: 80},
		{name: "lower bound", raw: dec("0"), want: 0},
		{name: "upper bound", raw: dec("100"), want: 100},
		{name: "fraction", raw: dec("80.5"), reason: "must be a whole number"},
		{name: "below range", raw: dec("-1"), reason: "must be at least 0"},
		{name: "above range", raw: dec("101"), reason: "must be at most 100"},
		{name: "missing", reason: "is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := itemScore(2, tc.raw)
			if tc.reason == "" {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "items[2].score", verr.Field)
			require.Equal(t, tc.reason, verr.Reason)
		})
	}
}
