package service_test

import (
	"context"
	"testing"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecompute_SumsOnlyNonExpiredLots(t *testing.T) {
	env := newTestEnv(t)
	pid := env.addPerishableProduct("Yogurt", "3")
	env.addLot(pid, "10", day(2025, 1, 10), fixedNow)
	expired := env.addLot(pid, "4", day(2024, 12, 20), fixedNow)
	env.addLot(pid, "2", nil, fixedNow)

	stock, err := env.reconciler.Recompute(context.Background(), nil, pid)
	require.NoError(t, err)
	assertDec(t, "12", stock)
	assertDec(t, "12", env.stock(pid))

	// expired lots stay on record
	_, ok := env.lotRemaining(expired)
	assert.True(t, ok)
}

func TestRecompute_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	pid := env.addPerishableProduct("Milk", "2")
	env.addLot(pid, "7", day(2025, 1, 5), fixedNow)
	env.updateProduct(pid, func(p *model.Product) { p.AggregateStock = dec("99") })

	first, err := env.reconciler.Recompute(context.Background(), nil, pid)
	require.NoError(t, err)
	second, err := env.reconciler.Recompute(context.Background(), nil, pid)
	require.NoError(t, err)

	assertDec(t, "7", first)
	assertDec(t, "7", second)
	assertDec(t, "7", env.stock(pid))
}

func TestRecompute_ExpiryDropsStockAsTimePasses(t *testing.T) {
	env := newTestEnv(t)
	pid := env.addPerishableProduct("Cream", "4")
	env.addLot(pid, "5", day(2025, 1, 3), fixedNow)
	env.addLot(pid, "6", day(2025, 1, 20), fixedNow)
	assertDec(t, "11", env.stock(pid))

	env.now = *day(2025, 1, 3) // lot expiring exactly now is no longer available
	stock, err := env.reconciler.Recompute(context.Background(), nil, pid)
	require.NoError(t, err)
	assertDec(t, "6", stock)
}

func TestRecompute_NonPerishableCounterUntouched(t *testing.T) {
	env := newTestEnv(t)
	pid := env.addCounterProduct("Soap", "5", "40")

	stock, err := env.reconciler.Recompute(context.Background(), nil, pid)
	require.NoError(t, err)
	assertDec(t, "40", stock)
	assertDec(t, "40", env.stock(pid))
}
