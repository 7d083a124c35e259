package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stockcost/internal/core/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name                          string
		curQty, curAvg, inQty, inCost string
		want                          string
	}{
		{"first receipt", "0", "0", "240", "10", "10"},
		{"first receipt ignores stale average", "0", "99", "240", "10", "10"},
		{"blend", "100", "10", "50", "12", "10.6667"},
		{"same cost", "240", "10", "240", "10", "10"},
		{"negative on-hand treated as empty", "-5", "10", "10", "8", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverage(dec(tt.curQty), dec(tt.curAvg), dec(tt.inQty), dec(tt.inCost))
			assert.Equal(t, tt.want, types.RoundCost(got).String())
		})
	}
}

func TestWeightedAverageFirstReceiptIsExact(t *testing.T) {
	cost := dec("10.123456789")
	assert.True(t, WeightedAverage(decimal.Zero, decimal.Zero, dec("3"), cost).Equal(cost))
}

func TestWeightedAverageIsPure(t *testing.T) {
	a := WeightedAverage(dec("100"), dec("10"), dec("50"), dec("12"))
	b := WeightedAverage(dec("100"), dec("10"), dec("50"), dec("12"))
	assert.True(t, a.Equal(b))
}

func TestValuationApply(t *testing.T) {
	v := Valuation{}.
		Apply(dec("240"), dec("10")).
		Apply(dec("120"), dec("13"))

	assert.Equal(t, "360", v.Quantity.String())
	assert.Equal(t, "11", types.RoundCost(v.AverageCost).String())
	assert.Equal(t, "3960", types.RoundMoney(v.Value()).String())
}
