package service

import (
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"

	"github.com/shopspring/decimal"
)

// Stock columns are NUMERIC(14,3) and money columns NUMERIC(12,2). Values
// with more places are rejected instead of being rounded on write.
const (
	quantityPlaces = 3
	moneyPlaces    = 2
)

func hasMorePlaces(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

func checkQuantityPlaces(q decimal.Decimal, field string) error {
	if hasMorePlaces(q, quantityPlaces) {
		return apierror.E(apierror.KindInvalidQuantity, "%s %s has more than %d decimal places", field, q, quantityPlaces)
	}
	return nil
}

func checkMoneyPlaces(m decimal.Decimal, field string) error {
	if hasMorePlaces(m, moneyPlaces) {
		return apierror.E(apierror.KindInvalidQuantity, "%s %s has more than %d decimal places", field, m, moneyPlaces)
	}
	return nil
}
