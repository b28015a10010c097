package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func orderWithItems(items ...models.OrderItem) *models.Order {
	return &models.Order{ID: "o1", OrderItems: items}
}

func item(id string, price int64, qty int, status models.ItemStatus) models.OrderItem {
	return models.OrderItem{ID: id, Price: dec(price), Quantity: qty, Status: status}
}

func assertPriceInvariant(t *testing.T, o *models.Order) {
	t.Helper()
	sum := o.ItemsPrice.Add(o.ShippingPrice).Add(o.TaxPrice)
	assert.True(t, o.TotalPrice.Equal(sum),
		"totalPrice %s != itemsPrice %s + shippingPrice %s + taxPrice %s",
		o.TotalPrice, o.ItemsPrice, o.ShippingPrice, o.TaxPrice)
}

func TestRecalcPricesScenario(t *testing.T) {
	// 2x1000 + 1x500, all pending.
	o := orderWithItems(
		item("a", 1000, 2, models.ItemPending),
		item("b", 500, 1, models.ItemPending),
	)
	recalcPrices(o)

	assert.True(t, o.ItemsPrice.Equal(dec(2500)))
	assert.True(t, o.ShippingPrice.Equal(dec(0)), "above 2000 ships free")
	assert.True(t, o.TaxPrice.Equal(dec(125)))
	assert.True(t, o.TotalPrice.Equal(dec(2625)))
	assertPriceInvariant(t, o)
}

func TestRecalcPricesExcludesCancelledItems(t *testing.T) {
	// Cancel the 500 item: itemsPrice drops to 2000, shipping kicks back in.
	o := orderWithItems(
		item("a", 1000, 2, models.ItemPending),
		item("b", 500, 1, models.ItemCancelled),
	)
	recalcPrices(o)

	assert.True(t, o.ItemsPrice.Equal(dec(2000)))
	assert.True(t, o.ShippingPrice.Equal(dec(60)))
	assert.True(t, o.TaxPrice.Equal(dec(100)))
	assert.True(t, o.TotalPrice.Equal(dec(2160)))
	assertPriceInvariant(t, o)
}

func TestShippingBoundaryAtThreshold(t *testing.T) {
	// Exactly 2000 still pays shipping; only strictly greater waives it.
	o := orderWithItems(item("a", 2000, 1, models.ItemPending))
	recalcPrices(o)
	assert.True(t, o.ShippingPrice.Equal(dec(60)))

	o = orderWithItems(item("a", 2001, 1, models.ItemPending))
	recalcPrices(o)
	assert.True(t, o.ShippingPrice.Equal(dec(0)))
}

func TestTaxRoundsHalfUp(t *testing.T) {
	// 5% of 1250 = 62.5 -> 63 under half-up rounding.
	o := orderWithItems(item("a", 1250, 1, models.ItemPending))
	recalcPrices(o)
	assert.True(t, o.TaxPrice.Equal(dec(63)), "got %s", o.TaxPrice)
	assertPriceInvariant(t, o)
}

func TestPendingItemsCountTowardTotal(t *testing.T) {
	o := orderWithItems(
		item("a", 100, 1, models.ItemPending),
		item("b", 100, 1, models.ItemConfirmed),
	)
	recalcPrices(o)
	assert.True(t, o.ItemsPrice.Equal(dec(200)))
}

func TestDeriveAggregateAllConfirmed(t *testing.T) {
	now := time.Now()
	o := orderWithItems(
		item("a", 100, 1, models.ItemConfirmed),
		item("b", 100, 1, models.ItemConfirmed),
	)
	deriveAggregate(o, now)

	assert.True(t, o.IsConfirmed)
	require.NotNil(t, o.ConfirmedAt)
	assert.False(t, o.IsCancelled)
	assert.Nil(t, o.CancelledAt)
}

func TestDeriveAggregateAllCancelled(t *testing.T) {
	now := time.Now()
	o := orderWithItems(
		item("a", 100, 1, models.ItemCancelled),
		item("b", 100, 1, models.ItemCancelled),
	)
	o.IsConfirmed = true // stale partial confirmation must be cleared
	deriveAggregate(o, now)

	assert.True(t, o.IsCancelled)
	require.NotNil(t, o.CancelledAt)
	assert.False(t, o.IsConfirmed)
	assert.Nil(t, o.ConfirmedAt)
}

func TestDeriveAggregateMixed(t *testing.T) {
	now := time.Now()
	o := orderWithItems(
		item("a", 100, 1, models.ItemConfirmed),
		item("b", 100, 1, models.ItemConfirmed),
		item("c", 100, 1, models.ItemPending),
	)
	deriveAggregate(o, now)

	assert.True(t, o.IsConfirmed, "any confirmed item marks the order confirmed")
	assert.False(t, o.IsCancelled)
	require.NotNil(t, o.ConfirmedAt)
}

func TestDeriveAggregateMixedKeepsFirstConfirmedAt(t *testing.T) {
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := orderWithItems(
		item("a", 100, 1, models.ItemConfirmed),
		item("b", 100, 1, models.ItemPending),
		item("c", 100, 1, models.ItemPending),
	)
	deriveAggregate(o, first)
	require.NotNil(t, o.ConfirmedAt)
	assert.Equal(t, first, *o.ConfirmedAt)

	// A later mixed evaluation must not restamp.
	o.OrderItems[1].Status = models.ItemCancelled
	deriveAggregate(o, first.Add(time.Hour))
	require.NotNil(t, o.ConfirmedAt)
	assert.Equal(t, first, *o.ConfirmedAt)
}

func TestConfirmedAndCancelledNeverBothTrue(t *testing.T) {
	now := time.Now()
	combos := [][]models.ItemStatus{
		{models.ItemPending, models.ItemPending},
		{models.ItemConfirmed, models.ItemPending},
		{models.ItemConfirmed, models.ItemConfirmed},
		{models.ItemCancelled, models.ItemPending},
		{models.ItemCancelled, models.ItemConfirmed},
		{models.ItemCancelled, models.ItemCancelled},
	}
	for _, combo := range combos {
		o := orderWithItems(
			item("a", 100, 1, combo[0]),
			item("b", 100, 1, combo[1]),
		)
		deriveAggregate(o, now)
		assert.False(t, o.IsConfirmed && o.IsCancelled, "combo %v", combo)
	}
}

func TestFullConfirmationOnlyAfterLastItem(t *testing.T) {
	now := time.Now()
	o := orderWithItems(
		item("a", 100, 1, models.ItemPending),
		item("b", 100, 1, models.ItemPending),
		item("c", 100, 1, models.ItemPending),
	)

	for i := range o.OrderItems {
		require.NoError(t, applyItemTransition(o, o.OrderItems[i].ID, models.ItemConfirmed, "", now))
		deriveAggregate(o, now)

		allConfirmed := true
		for _, it := range o.OrderItems {
			if it.Status != models.ItemConfirmed {
				allConfirmed = false
			}
		}
		if i < len(o.OrderItems)-1 {
			assert.False(t, allConfirmed, "items must not all be confirmed before the last transition")
			assert.True(t, o.IsConfirmed, "partial confirmation still raises the flag")
		} else {
			assert.True(t, allConfirmed)
			assert.True(t, o.IsConfirmed)
		}
		assert.False(t, o.IsCancelled)
	}
}

func TestCancellingAllItemsCancelsOrder(t *testing.T) {
	now := time.Now()
	o := orderWithItems(
		item("a", 100, 1, models.ItemPending),
		item("b", 100, 1, models.ItemPending),
	)
	for i := range o.OrderItems {
		require.NoError(t, applyItemTransition(o, o.OrderItems[i].ID, models.ItemCancelled, "out of stock", now))
	}
	deriveAggregate(o, now)

	assert.True(t, o.IsCancelled)
	assert.False(t, o.IsConfirmed)
}

func TestApplyItemTransitionRules(t *testing.T) {
	now := time.Now()

	t.Run("pending to confirmed", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemPending))
		require.NoError(t, applyItemTransition(o, "a", models.ItemConfirmed, "", now))
		assert.Equal(t, models.ItemConfirmed, o.OrderItems[0].Status)
		assert.NotNil(t, o.OrderItems[0].ConfirmedAt)
	})

	t.Run("pending to cancelled records reason", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemPending))
		require.NoError(t, applyItemTransition(o, "a", models.ItemCancelled, "changed my mind", now))
		assert.Equal(t, models.ItemCancelled, o.OrderItems[0].Status)
		assert.Equal(t, "changed my mind", o.OrderItems[0].CancelReason)
		assert.NotNil(t, o.OrderItems[0].CancelledAt)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemConfirmed))
		require.NoError(t, applyItemTransition(o, "a", models.ItemConfirmed, "", now))
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemConfirmed))
		err := applyItemTransition(o, "a", models.ItemCancelled, "", now)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})

	t.Run("pending is not a valid target", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemConfirmed))
		err := applyItemTransition(o, "a", models.ItemPending, "", now)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemPending))
		err := applyItemTransition(o, "missing", models.ItemConfirmed, "", now)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	})

	t.Run("oversized cancel reason", func(t *testing.T) {
		o := orderWithItems(item("a", 100, 1, models.ItemPending))
		long := make([]byte, maxCancelReasonLen+1)
		for i := range long {
			long[i] = 'x'
		}
		err := applyItemTransition(o, "a", models.ItemCancelled, string(long), now)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})
}
