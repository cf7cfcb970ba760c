package service_test

import (
	"testing"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/service"

	"github.com/stretchr/testify/require"
)

func TestPrice_WeightedPieceSoldByMeasure(t *testing.T) {
	engine := service.NewPricingEngine()
	quote, err := engine.Price(service.PriceInput{
		Mode:           model.SaleModeBoth,
		TotalPrice:     decPtr("1000"),
		PartialPrice:   decPtr("200"),
		UnitOfMeasure:  strPtr("kg"),
		WeightPerPiece: decPtr("5"),
		Quantity:       dec("12"),
	})
	require.NoError(t, err)
	assertDec(t, "2400", quote.Amount)
	assertDec(t, "200", quote.UnitPriceApplied)
	assertDec(t, "2.4", quote.WithdrawalQuantity)
}

func TestPrice_Modes(t *testing.T) {
	cases := []struct {
		name       string
		in         service.PriceInput
		amount     string
		withdrawal string
		kind       apierror.Kind
	}{
		{
			name:       "total mode multiplies the unit price",
			in:         service.PriceInput{Mode: model.SaleModeTotal, TotalPrice: decPtr("50"), Quantity: dec("3")},
			amount:     "150",
			withdrawal: "3",
		},
		{
			name:       "both sold whole uses the unit price",
			in:         service.PriceInput{Mode: model.SaleModeBoth, TotalPrice: decPtr("1000"), PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), Quantity: dec("2"), SellAsWhole: true},
			amount:     "2000",
			withdrawal: "2",
		},
		{
			name:       "partial charges per unit of measure",
			in:         service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("12.50"), UnitOfMeasure: strPtr("m"), Quantity: dec("2.5")},
			amount:     "31.25",
			withdrawal: "2.5",
		},
		{
			name:       "both by measure without weight withdraws the measure",
			in:         service.PriceInput{Mode: model.SaleModeBoth, TotalPrice: decPtr("1000"), PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), Quantity: dec("1.5")},
			amount:     "300",
			withdrawal: "1.5",
		},
		{
			name:       "weighted withdrawal is rounded to stock precision",
			in:         service.PriceInput{Mode: model.SaleModeBoth, TotalPrice: decPtr("90"), PartialPrice: decPtr("30"), UnitOfMeasure: strPtr("kg"), WeightPerPiece: decPtr("3"), Quantity: dec("1")},
			amount:     "30",
			withdrawal: "0.333",
		},
		{
			name: "zero quantity",
			in:   service.PriceInput{Mode: model.SaleModeTotal, TotalPrice: decPtr("50"), Quantity: dec("0")},
			kind: apierror.KindInvalidQuantity,
		},
		{
			name: "negative quantity",
			in:   service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("5"), UnitOfMeasure: strPtr("kg"), Quantity: dec("-1")},
			kind: apierror.KindInvalidQuantity,
		},
		{
			name: "fractional whole units",
			in:   service.PriceInput{Mode: model.SaleModeTotal, TotalPrice: decPtr("50"), Quantity: dec("2.5")},
			kind: apierror.KindInvalidQuantity,
		},
		{
			name: "measure finer than stock precision",
			in:   service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), Quantity: dec("1.2345")},
			kind: apierror.KindInvalidQuantity,
		},
		{
			name:       "trailing zeros beyond stock precision are accepted",
			in:         service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), Quantity: dec("1.2340")},
			amount:     "246.8",
			withdrawal: "1.234",
		},
		{
			name: "weighted measure too small for one stock unit",
			in:   service.PriceInput{Mode: model.SaleModeBoth, TotalPrice: decPtr("1000"), PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), WeightPerPiece: decPtr("5"), Quantity: dec("0.002")},
			kind: apierror.KindInvalidQuantity,
		},
		{
			name: "total mode without a unit price",
			in:   service.PriceInput{Mode: model.SaleModeTotal, Quantity: dec("1")},
			kind: apierror.KindMissingPricing,
		},
		{
			name: "both sold whole without a unit price",
			in:   service.PriceInput{Mode: model.SaleModeBoth, PartialPrice: decPtr("200"), UnitOfMeasure: strPtr("kg"), Quantity: dec("1"), SellAsWhole: true},
			kind: apierror.KindMissingPricing,
		},
		{
			name: "partial without a unit of measure",
			in:   service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("5"), Quantity: dec("1")},
			kind: apierror.KindMissingPricing,
		},
		{
			name: "partial sold whole",
			in:   service.PriceInput{Mode: model.SaleModePartial, PartialPrice: decPtr("5"), UnitOfMeasure: strPtr("kg"), Quantity: dec("1"), SellAsWhole: true},
			kind: apierror.KindInvalidOperation,
		},
		{
			name: "unknown mode",
			in:   service.PriceInput{Mode: model.SaleMode("BULK"), TotalPrice: decPtr("5"), Quantity: dec("1")},
			kind: apierror.KindInvalidOperation,
		},
	}

	engine := service.NewPricingEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := engine.Price(tc.in)
			if tc.kind != "" {
				assertKind(t, err, tc.kind)
				return
			}
			require.NoError(t, err)
			assertDec(t, tc.amount, quote.Amount)
			assertDec(t, tc.withdrawal, quote.WithdrawalQuantity)
		})
	}
}

func TestPriceInputFor_CopiesProductConfiguration(t *testing.T) {
	p := &model.Product{
		SaleMode:       model.SaleModeBoth,
		TotalPrice:     decPtr("10"),
		PartialPrice:   decPtr("2"),
		UnitOfMeasure:  strPtr("kg"),
		WeightPerPiece: decPtr("5"),
	}
	in := service.PriceInputFor(p, dec("4"), true)
	require.Equal(t, model.SaleModeBoth, in.Mode)
	require.True(t, in.SellAsWhole)
	assertDec(t, "4", in.Quantity)
	assertDec(t, "5", *in.WeightPerPiece)
}
