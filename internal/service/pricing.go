package service

import (
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/shopspring/decimal"
)

// PriceInput is a product's sale configuration plus the requested quantity.
type PriceInput struct {
	Mode           model.SaleMode
	TotalPrice     *decimal.Decimal
	PartialPrice   *decimal.Decimal
	UnitOfMeasure  *string
	WeightPerPiece *decimal.Decimal
	Quantity       decimal.Decimal
	SellAsWhole    bool
}

// PriceQuote is what a sale line costs and how much stock it consumes.
// Amount and WithdrawalQuantity diverge for weighted products sold by measure.
type PriceQuote struct {
	Amount             decimal.Decimal
	UnitPriceApplied   decimal.Decimal
	WithdrawalQuantity decimal.Decimal
}

// PricingEngine prices sale lines. It holds no state and touches no storage.
type PricingEngine struct{}

func NewPricingEngine() *PricingEngine { return &PricingEngine{} }

// PriceInputFor builds the pricing input for selling quantity of p.
func PriceInputFor(p *model.Product, quantity decimal.Decimal, sellAsWhole bool) PriceInput {
	return PriceInput{
		Mode:           p.SaleMode,
		TotalPrice:     p.TotalPrice,
		PartialPrice:   p.PartialPrice,
		UnitOfMeasure:  p.UnitOfMeasure,
		WeightPerPiece: p.WeightPerPiece,
		Quantity:       quantity,
		SellAsWhole:    sellAsWhole,
	}
}

func (e *PricingEngine) Price(in PriceInput) (PriceQuote, error) {
	if !in.Quantity.IsPositive() {
		return PriceQuote{}, apierror.E(apierror.KindInvalidQuantity, "quantity must be greater than zero")
	}
	if err := checkQuantityPlaces(in.Quantity, "quantity"); err != nil {
		return PriceQuote{}, err
	}

	switch in.Mode {
	case model.SaleModeTotal:
		return priceWhole(in)
	case model.SaleModePartial:
		if in.SellAsWhole {
			return PriceQuote{}, apierror.E(apierror.KindInvalidOperation, "product is sold by measure only and cannot be sold as a whole unit")
		}
		return priceMeasured(in, false)
	case model.SaleModeBoth:
		if in.SellAsWhole {
			return priceWhole(in)
		}
		return priceMeasured(in, true)
	default:
		return PriceQuote{}, apierror.E(apierror.KindInvalidOperation, "unknown sale mode %q", in.Mode)
	}
}

func priceWhole(in PriceInput) (PriceQuote, error) {
	if !in.Quantity.IsInteger() {
		return PriceQuote{}, apierror.E(apierror.KindInvalidQuantity, "whole-unit sales need an integer quantity, got %s", in.Quantity)
	}
	if in.TotalPrice == nil {
		return PriceQuote{}, apierror.E(apierror.KindMissingPricing, "product has no unit price")
	}
	return PriceQuote{
		Amount:             in.TotalPrice.Mul(in.Quantity).Round(2),
		UnitPriceApplied:   *in.TotalPrice,
		WithdrawalQuantity: in.Quantity,
	}, nil
}

// priceMeasured charges per unit of measure. When weighted is set and the
// product has a positive weight per piece, the quantity is a measure (kg, l)
// and stock is drawn in fractional pieces.
func priceMeasured(in PriceInput, weighted bool) (PriceQuote, error) {
	if in.PartialPrice == nil || in.UnitOfMeasure == nil || *in.UnitOfMeasure == "" {
		return PriceQuote{}, apierror.E(apierror.KindMissingPricing, "product has no price per unit of measure")
	}
	withdrawal := in.Quantity
	if weighted && in.WeightPerPiece != nil && in.WeightPerPiece.IsPositive() {
		withdrawal = in.Quantity.DivRound(*in.WeightPerPiece, quantityPlaces)
		if !withdrawal.IsPositive() {
			return PriceQuote{}, apierror.E(apierror.KindInvalidQuantity,
				"%s %s is less than the smallest stock unit of a %s %s piece", in.Quantity, *in.UnitOfMeasure, *in.WeightPerPiece, *in.UnitOfMeasure)
		}
	}
	return PriceQuote{
		Amount:             in.PartialPrice.Mul(in.Quantity).Round(2),
		UnitPriceApplied:   *in.PartialPrice,
		WithdrawalQuantity: withdrawal,
	}, nil
}
