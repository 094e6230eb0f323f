package invoices

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopledger/coopledger/internal/shared"
)

func TestNextNumber(t *testing.T) {
	march := shared.Period{Year: 2024, Month: time.March}

	cases := []struct {
		name   string
		latest string
		want   string
	}{
		{name: "first of period", latest: "", want: "INV-2024030001"},
		{name: "increments", latest: "INV-2024030001", want: "INV-2024030002"},
		{name: "carries digits", latest: "INV-2024030099", want: "INV-2024030100"},
		{name: "last slot", latest: "INV-2024039998", want: "INV-2024039999"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextNumber(tc.latest, march)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNextNumberExhausted(t *testing.T) {
	_, err := NextNumber("INV-2024039999", shared.Period{Year: 2024, Month: time.March})
	require.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestNextNumberRejectsForeignLatest(t *testing.T) {
	_, err := NextNumber("INV-2024020007", shared.Period{Year: 2024, Month: time.March})
	require.ErrorIs(t, err, shared.ErrConsistency)

	_, err = NextNumber("INV-20240312345", shared.Period{Year: 2024, Month: time.March})
	require.ErrorIs(t, err, shared.ErrConsistency)
}

func TestParseSequence(t *testing.T) {
	p := shared.Period{Year: 2025, Month: time.December}
	seq, err := ParseSequence("INV-2025120042", p)
	require.NoError(t, err)
	require.Equal(t, 42, seq)

	_, err = ParseSequence("INV-202512004X", p)
	require.Error(t, err)
	require.Equal(t, "INV-202512", NumberPrefix(p))
}

func TestPriceItems(t *testing.T) {
	items, total, err := PriceItems([]ItemInput{
		{Description: "Eggs tray", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.00")},
		{Description: "  ", Quantity: decimal.Zero, UnitPrice: decimal.Zero},
		{Description: "Manure bag", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("5.00")},
	}, ItemPolicySkip)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, total.Equal(decimal.RequireFromString("25.00")))
	require.True(t, items[0].TotalPrice.Equal(decimal.RequireFromString("20.00")))

	_, _, err = PriceItems([]ItemInput{
		{Description: "Eggs", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
		{Description: "", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
	}, ItemPolicyReject)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "items[1].description", verr.Field)
}

func TestPriceItemsRounding(t *testing.T) {
	items, total, err := PriceItems([]ItemInput{
		{Description: "Feed", Quantity: decimal.RequireFromString("1.005"), UnitPrice: decimal.RequireFromString("10.00")},
		{Description: "Grit", Quantity: decimal.RequireFromString("0.333"), UnitPrice: decimal.RequireFromString("1.50")},
	}, ItemPolicySkip)
	require.NoError(t, err)
	require.Equal(t, "10.05", items[0].TotalPrice.StringFixed(2))
	require.Equal(t, "0.50", items[1].TotalPrice.StringFixed(2))
	require.Equal(t, "10.55", total.StringFixed(2))
}

func TestPriceItemsRejectsNonPositive(t *testing.T) {
	cases := []struct {
		name  string
		item  ItemInput
		field string
	}{
		{name: "zero quantity", item: ItemInput{Description: "x", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(1)}, field: "items[0].quantity"},
		{name: "negative price", item: ItemInput{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-1)}, field: "items[0].unit_price"},
		{name: "fractional cents", item: ItemInput{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("0.001")}, field: "items[0].unit_price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := PriceItems([]ItemInput{tc.item}, ItemPolicySkip)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}

	_, _, err := PriceItems([]ItemInput{{Description: " "}}, ItemPolicySkip)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatusTransitions(t *testing.T) {
	require.True(t, StatusDraft.CanTransition(StatusSent))
	require.True(t, StatusSent.CanTransition(StatusOverdue))
	require.True(t, StatusOverdue.CanTransition(StatusPaid))
	require.False(t, StatusPaid.CanTransition(StatusCancelled))
	require.False(t, StatusCancelled.CanTransition(StatusDraft))
	require.False(t, StatusDraft.CanTransition(StatusPaid))
	require.True(t, StatusCancelled.Deletable())
	require.False(t, StatusSent.Deletable())
}
