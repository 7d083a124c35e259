package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/apperror"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddUOM(t *testing.T) {
	p := NewProduct("BEER-01", "Lager 330ml", "bottle")

	u, err := p.AddUOM("case", dec("24"), dec("600"))
	require.NoError(t, err)
	assert.Equal(t, p.ID, u.ProductID)
	require.Len(t, p.UOMs, 1)

	reg, err := p.Registry()
	require.NoError(t, err)
	base, err := reg.ToBase(dec("10"), "case")
	require.NoError(t, err)
	assert.Equal(t, "240", base.String())
}

func TestAddUOMRejectsInvalidAndKeepsState(t *testing.T) {
	p := NewProduct("BEER-01", "Lager 330ml", "bottle")
	_, err := p.AddUOM("case", dec("24"), decimal.Zero)
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		uom    string
		factor string
	}{
		{"zero factor", "pack", "0"},
		{"negative factor", "pack", "-6"},
		{"duplicate", "case", "12"},
		{"base name", "bottle", "1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.AddUOM(tc.uom, dec(tc.factor), decimal.Zero)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			assert.Len(t, p.UOMs, 1)
		})
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	p := NewProduct("BEER-01", "Lager 330ml", "bottle")
	assert.NoError(t, p.Validate(ctx))

	p.AverageCostPrice = dec("-1")
	assert.Error(t, p.Validate(ctx))

	p = NewProduct("BEER-01", "", "bottle")
	assert.Error(t, p.Validate(ctx))

	p = NewProduct("BEER-01", "Lager", "")
	assert.Error(t, p.Validate(ctx))
}

func TestApplyAverageCostRounds(t *testing.T) {
	p := NewProduct("BEER-01", "Lager 330ml", "bottle")
	p.ApplyAverageCost(dec("10.666666666"))
	assert.Equal(t, "10.6667", p.AverageCostPrice.String())
}
