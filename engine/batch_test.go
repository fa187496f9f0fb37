package engine_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sale-engine/engine"
)

// =============================================================================
// INPUT SHAPE
// =============================================================================

func TestBatch_ShapeRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "7", 10)
	f.configure(t, "7", 2, 100, 200, 10, 0, engine.NativeToken)
	f.clock.Set(at(150))

	// Duplicate item, rejected before any state mutation.
	_, err := f.engine.PurchaseBatch(ctx, alice, []engine.ItemID{"7", "7"}, []uint64{1, 2}, engine.NewAmount(6))
	assert.ErrorIs(t, err, engine.ErrDuplicateItem)
	cfg, _ := f.engine.Sale("7")
	assert.Equal(t, uint64(0), cfg.TotalSold)

	// Mismatched lengths.
	_, err = f.engine.PurchaseBatch(ctx, alice, []engine.ItemID{"7"}, []uint64{1, 2}, engine.NewAmount(6))
	assert.ErrorIs(t, err, engine.ErrLengthMismatch)

	// Zero quantity.
	_, err = f.engine.PurchaseBatch(ctx, alice, []engine.ItemID{"7"}, []uint64{0}, engine.ZeroAmount())
	assert.ErrorIs(t, err, engine.ErrZeroQuantity)

	// Empty batch.
	_, err = f.engine.PurchaseBatch(ctx, alice, nil, nil, engine.ZeroAmount())
	assert.ErrorIs(t, err, engine.ErrEmptyBatch)

	// Over the bound.
	items := make([]engine.ItemID, engine.DefaultMaxBatch+1)
	qtys := make([]uint64, engine.DefaultMaxBatch+1)
	for i := range items {
		items[i] = engine.ItemID(strconv.Itoa(i))
		qtys[i] = 1
	}
	_, err = f.engine.PurchaseBatch(ctx, alice, items, qtys, engine.ZeroAmount())
	assert.ErrorIs(t, err, engine.ErrBatchTooLarge)
}

// =============================================================================
// AGGREGATED SETTLEMENT
// =============================================================================

func TestBatchAggregated_OnePullPerDistinctToken(t *testing.T) {
	// GIVEN: Items 1, 2, 3 all gold-denominated at price 5
	f := newFixture(t)
	ctx := context.Background()
	for _, item := range []engine.ItemID{"1", "2", "3"} {
		f.assets.Mint(self, item, 10)
		f.configure(t, item, 5, 100, 200, 10, 0, gold)
	}
	f.tokens.Mint(gold, alice, engine.NewAmount(100))
	f.clock.Set(at(150))

	// WHEN: Aggregated batch with quantities 2, 3, 1
	receipt, err := f.engine.PurchaseBatchAggregated(ctx, alice,
		[]engine.ItemID{"1", "2", "3"}, []uint64{2, 3, 1}, engine.ZeroAmount())

	// THEN: Exactly one pull of 30, not three separate pulls
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 3)
	pulls := f.tokens.Pulls()
	require.Len(t, pulls, 1)
	assert.True(t, pulls[0].Amount.Equal(engine.NewAmount(30)))

	for i, item := range []engine.ItemID{"1", "2", "3"} {
		held, _ := f.assets.BalanceOf(ctx, alice, item)
		assert.Equal(t, []uint64{2, 3, 1}[i], held)
	}
}

func TestBatchPerItem_OnePullPerEntry(t *testing.T) {
	// The per-item strategy keeps its observable one-pull-per-entry count.
	f := newFixture(t)
	ctx := context.Background()
	for _, item := range []engine.ItemID{"1", "2", "3"} {
		f.assets.Mint(self, item, 10)
		f.configure(t, item, 5, 100, 200, 10, 0, gold)
	}
	f.tokens.Mint(gold, alice, engine.NewAmount(100))
	f.clock.Set(at(150))

	_, err := f.engine.PurchaseBatch(ctx, alice,
		[]engine.ItemID{"1", "2", "3"}, []uint64{2, 3, 1}, engine.ZeroAmount())

	require.NoError(t, err)
	pulls := f.tokens.Pulls()
	require.Len(t, pulls, 3)
	assert.True(t, pulls[0].Amount.Equal(engine.NewAmount(10)))
	assert.True(t, pulls[1].Amount.Equal(engine.NewAmount(15)))
	assert.True(t, pulls[2].Amount.Equal(engine.NewAmount(5)))
}

func TestBatchAggregated_GroupsByDistinctToken(t *testing.T) {
	// GIVEN: Two gold sales, one silver sale, one native sale
	f := newFixture(t)
	ctx := context.Background()
	silver := engine.TokenID("silver")
	f.assets.Mint(self, "g1", 10)
	f.assets.Mint(self, "g2", 10)
	f.assets.Mint(self, "s1", 10)
	f.assets.Mint(self, "n1", 10)
	f.configure(t, "g1", 5, 100, 200, 10, 0, gold)
	f.configure(t, "g2", 7, 100, 200, 10, 0, gold)
	f.configure(t, "s1", 3, 100, 200, 10, 0, silver)
	f.configure(t, "n1", 2, 100, 200, 10, 0, engine.NativeToken)
	f.tokens.Mint(gold, alice, engine.NewAmount(100))
	f.tokens.Mint(silver, alice, engine.NewAmount(100))
	f.clock.Set(at(150))

	// WHEN: One aggregated batch across all four, tendering native for n1
	f.bank.Deposit(self, engine.NewAmount(4))
	receipt, err := f.engine.PurchaseBatchAggregated(ctx, alice,
		[]engine.ItemID{"g1", "g2", "s1", "n1"}, []uint64{1, 1, 2, 2}, engine.NewAmount(4))

	// THEN: One pull per distinct token (gold 12, silver 6), native forwarded once
	require.NoError(t, err)
	pulls := f.tokens.Pulls()
	require.Len(t, pulls, 2)
	assert.Equal(t, gold, pulls[0].Token)
	assert.True(t, pulls[0].Amount.Equal(engine.NewAmount(12)))
	assert.Equal(t, silver, pulls[1].Token)
	assert.True(t, pulls[1].Amount.Equal(engine.NewAmount(6)))

	assert.True(t, receipt.NativeSpent.Equal(engine.NewAmount(4)))
	assert.True(t, receipt.Refund.IsZero())
	assert.True(t, f.nativeBalance(t, treasury).Equal(engine.NewAmount(4)))
	assert.True(t, f.nativeBalance(t, self).IsZero())
}

// =============================================================================
// ALL-OR-NOTHING
// =============================================================================

func TestBatch_OneFailingEntryAbortsEverything(t *testing.T) {
	// GIVEN: Two healthy sales and one over-quota entry at the end
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "1", 10)
	f.assets.Mint(self, "2", 10)
	f.assets.Mint(self, "3", 10)
	f.configure(t, "1", 5, 100, 200, 10, 0, gold)
	f.configure(t, "2", 5, 100, 200, 10, 0, gold)
	f.configure(t, "3", 5, 100, 200, 10, 1, gold) // quota 1
	f.tokens.Mint(gold, alice, engine.NewAmount(1000))
	f.clock.Set(at(150))

	for _, aggregated := range []bool{false, true} {
		buy := f.engine.PurchaseBatch
		if aggregated {
			buy = f.engine.PurchaseBatchAggregated
		}

		// WHEN: The final entry exceeds its quota
		_, err := buy(ctx, alice, []engine.ItemID{"1", "2", "3"}, []uint64{1, 1, 2}, engine.ZeroAmount())

		// THEN: The whole batch aborts before any payment or asset movement
		assert.ErrorIs(t, err, engine.ErrExceedsMaxPerAddress)
		assert.Empty(t, f.tokens.Pulls())
		for _, item := range []engine.ItemID{"1", "2", "3"} {
			cfg, _ := f.engine.Sale(item)
			assert.Equal(t, uint64(0), cfg.TotalSold)
			held, _ := f.assets.BalanceOf(ctx, alice, item)
			assert.Equal(t, uint64(0), held)
		}
	}
}

func TestBatch_TenderMissingFromCustodyBlocksTokenPulls(t *testing.T) {
	// GIVEN: A mixed native+token batch where the claimed tender was
	// never actually deposited into custody
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "1", 10)
	f.assets.Mint(self, "2", 10)
	f.configure(t, "1", 2, 100, 200, 10, 0, engine.NativeToken)
	f.configure(t, "2", 5, 100, 200, 10, 0, gold)
	f.tokens.Mint(gold, alice, engine.NewAmount(100))
	f.clock.Set(at(150))

	// WHEN: The purchase claims a tender of 2 with custody empty
	_, err := f.engine.PurchaseBatch(ctx, alice, []engine.ItemID{"1", "2"}, []uint64{1, 1}, engine.NewAmount(2))

	// THEN: Rejected as a payment shortfall before any token moved
	assert.ErrorIs(t, err, engine.ErrInsufficientPayment)
	assert.Empty(t, f.tokens.Pulls())
	for _, item := range []engine.ItemID{"1", "2"} {
		cfg, _ := f.engine.Sale(item)
		assert.Equal(t, uint64(0), cfg.TotalSold)
	}
}

func TestBatch_NativeCollectedOnceWithSingleRefund(t *testing.T) {
	// GIVEN: Two native sales at prices 2 and 3
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "a", 10)
	f.assets.Mint(self, "b", 10)
	f.configure(t, "a", 2, 100, 200, 10, 0, engine.NativeToken)
	f.configure(t, "b", 3, 100, 200, 10, 0, engine.NativeToken)
	f.clock.Set(at(150))

	// WHEN: Alice tenders 20 for a total cost of 2*2 + 3*1 = 7
	f.bank.Deposit(self, engine.NewAmount(20))
	receipt, err := f.engine.PurchaseBatch(ctx, alice,
		[]engine.ItemID{"a", "b"}, []uint64{2, 1}, engine.NewAmount(20))

	// THEN: One forward of 7, one refund of 13, custody empty
	require.NoError(t, err)
	assert.True(t, receipt.NativeSpent.Equal(engine.NewAmount(7)))
	assert.True(t, receipt.Refund.Equal(engine.NewAmount(13)))
	assert.True(t, f.nativeBalance(t, treasury).Equal(engine.NewAmount(7)))
	assert.True(t, f.nativeBalance(t, alice).Equal(engine.NewAmount(13)))
	assert.True(t, f.nativeBalance(t, self).IsZero())
}
