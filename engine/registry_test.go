package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sale-engine/engine"
	"github.com/warp/sale-engine/engine/enginetest"
)

// =============================================================================
// CONFIGURE
// =============================================================================

func TestConfigure_RejectsInvalidParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params engine.ConfigureSaleParams
		want   error
	}{
		{"zero price", engine.ConfigureSaleParams{Item: "7", Price: engine.NewAmount(0), StartTime: at(100), EndTime: at(200), MaxSupply: 10}, engine.ErrZeroPrice},
		{"zero supply", engine.ConfigureSaleParams{Item: "7", Price: engine.NewAmount(2), StartTime: at(100), EndTime: at(200), MaxSupply: 0}, engine.ErrZeroMaxSupply},
		{"start equals end", engine.ConfigureSaleParams{Item: "7", Price: engine.NewAmount(2), StartTime: at(100), EndTime: at(100), MaxSupply: 10}, engine.ErrInvalidTimeRange},
		{"start after end", engine.ConfigureSaleParams{Item: "7", Price: engine.NewAmount(2), StartTime: at(200), EndTime: at(100), MaxSupply: 10}, engine.ErrInvalidTimeRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Configure(ctx, admin, tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestConfigure_UnsetPaymentTokenMeansNative(t *testing.T) {
	// GIVEN: An engine with no token ledger wired at all
	bank := enginetest.NewNativeBank()
	clock := enginetest.NewClock(at(0))
	eng := engine.New(admin, self, bank, engine.WithClock(clock))
	require.NoError(t, eng.SetAssetLedger(admin, enginetest.NewAssetLedger()))
	require.NoError(t, eng.SetPaymentRecipient(admin, treasury))

	// WHEN: Configuring without naming a payment token
	cfg, err := eng.Configure(context.Background(), admin, engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(2), StartTime: at(100), EndTime: at(200), MaxSupply: 10,
	})

	// THEN: The sale is a native sale, not a bogus empty-named token sale
	require.NoError(t, err)
	assert.Equal(t, engine.NativeToken, cfg.PaymentToken)
	assert.True(t, cfg.PaymentToken.IsNative())
}

func TestConfigure_VerifyInventoryRequiresFullSupply(t *testing.T) {
	// GIVEN: Custody holds 5 units of item 7
	f := newFixture(t)
	f.assets.Mint(self, "7", 5)

	// WHEN: Configuring with verification and maxSupply 10
	_, err := f.engine.Configure(context.Background(), admin, engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(2), StartTime: at(100), EndTime: at(200),
		MaxSupply: 10, VerifyInventory: true,
	})

	// THEN: Rejected for insufficient inventory; succeeds once supply fits
	assert.ErrorIs(t, err, engine.ErrInsufficientInventory)

	cfg, err := f.engine.Configure(context.Background(), admin, engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(2), StartTime: at(100), EndTime: at(200),
		MaxSupply: 5, VerifyInventory: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.SaleVersion)
	assert.True(t, cfg.Active)
	assert.True(t, f.engine.IsActive("7"))
}

func TestConfigure_ReconfigureResetsAccountingAndBumpsVersion(t *testing.T) {
	// Scenario: reconfigure while active is rejected; deactivate-then-
	// reconfigure starts version 2 with TotalSold reset and prior buyer
	// quotas inert.
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "7", 20)
	f.configure(t, "7", 2, 100, 200, 10, 3, engine.NativeToken)
	f.clock.Set(at(150))

	_, err := f.buyNative(alice, "7", 3, 6)
	require.NoError(t, err)

	// Reconfiguring a live sale would silently discard its accounting.
	_, err = f.engine.Configure(ctx, admin, engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(3), StartTime: at(100), EndTime: at(300), MaxSupply: 10, MaxPerAddress: 3,
	})
	assert.ErrorIs(t, err, engine.ErrSaleMustBeInactive)

	require.NoError(t, f.engine.SetActive(ctx, admin, "7", false))
	cfg, err := f.engine.Configure(ctx, admin, engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(3), StartTime: at(100), EndTime: at(300), MaxSupply: 10, MaxPerAddress: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), cfg.SaleVersion)
	assert.Equal(t, uint64(0), cfg.TotalSold)

	// Alice's 3 units under version 1 no longer count against version 2.
	status, err := f.engine.BuyerState(ctx, "7", alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.Purchased)
	assert.Equal(t, uint64(3), status.RemainingQuota)
	assert.True(t, status.Eligible)
}

// =============================================================================
// UPDATE PARAMS
// =============================================================================

func TestUpdateParams_PatchesInPlace(t *testing.T) {
	f := newFixture(t)
	f.assets.Mint(self, "7", 10)
	f.configure(t, "7", 2, 100, 200, 10, 3, engine.NativeToken)
	f.clock.Set(at(150))
	_, err := f.buyNative(alice, "7", 2, 4)
	require.NoError(t, err)

	require.NoError(t, f.engine.UpdateParams(admin, "7", engine.NewAmount(5), at(300)))

	cfg, err := f.engine.Sale("7")
	require.NoError(t, err)
	assert.True(t, cfg.Price.Equal(engine.NewAmount(5)))
	assert.Equal(t, at(300), cfg.EndTime)
	// The patch never touches accounting or the version.
	assert.Equal(t, uint64(2), cfg.TotalSold)
	assert.Equal(t, uint64(1), cfg.SaleVersion)
	assert.True(t, cfg.Active)
}

func TestUpdateParams_Rejections(t *testing.T) {
	f := newFixture(t)
	f.assets.Mint(self, "7", 10)
	f.configure(t, "7", 2, 100, 200, 10, 0, engine.NativeToken)

	assert.ErrorIs(t, f.engine.UpdateParams(admin, "missing", engine.NewAmount(5), at(300)), engine.ErrSaleNotFound)
	assert.ErrorIs(t, f.engine.UpdateParams(admin, "7", engine.NewAmount(0), at(300)), engine.ErrZeroPrice)
	// End time may only be extended.
	assert.ErrorIs(t, f.engine.UpdateParams(admin, "7", engine.NewAmount(5), at(199)), engine.ErrEndTimeShortened)
	// Keeping the same end time is allowed.
	assert.NoError(t, f.engine.UpdateParams(admin, "7", engine.NewAmount(5), at(200)))
}

// =============================================================================
// SET ACTIVE
// =============================================================================

func TestSetActive_SyncsIndexWithConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "7", 10)
	f.configure(t, "7", 2, 100, 200, 10, 0, engine.NativeToken)

	require.NoError(t, f.engine.SetActive(ctx, admin, "7", false))
	assert.False(t, f.engine.IsActive("7"))
	cfg, _ := f.engine.Sale("7")
	assert.False(t, cfg.Active)

	require.NoError(t, f.engine.SetActive(ctx, admin, "7", true))
	assert.True(t, f.engine.IsActive("7"))
	cfg, _ = f.engine.Sale("7")
	assert.True(t, cfg.Active)

	assert.ErrorIs(t, f.engine.SetActive(ctx, admin, "missing", true), engine.ErrSaleNotFound)
}

func TestSetActive_ReactivationChecksRemainingInventory(t *testing.T) {
	// GIVEN: 10 configured, 3 sold, sale deactivated, then inventory drained
	// below the remaining allotment of 7
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "7", 10)
	f.configure(t, "7", 2, 100, 200, 10, 0, engine.NativeToken)
	f.clock.Set(at(150))
	_, err := f.buyNative(alice, "7", 3, 6)
	require.NoError(t, err)

	require.NoError(t, f.engine.SetActive(ctx, admin, "7", false))
	require.NoError(t, f.engine.WithdrawItems(ctx, admin, []engine.ItemID{"7"}, []uint64{5}))

	// WHEN/THEN: Reactivation needs held >= remaining (7), but only 2 are left
	err = f.engine.SetActive(ctx, admin, "7", true)
	assert.ErrorIs(t, err, engine.ErrInsufficientInventory)

	f.assets.Mint(self, "7", 5)
	assert.NoError(t, f.engine.SetActive(ctx, admin, "7", true))
}

// =============================================================================
// SWEEP
// =============================================================================

func TestSweepExpired_DeactivatesClosedWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assets.Mint(self, "a", 5)
	f.assets.Mint(self, "b", 5)
	f.configure(t, "a", 1, 100, 200, 5, 0, engine.NativeToken)
	f.configure(t, "b", 1, 100, 500, 5, 0, engine.NativeToken)

	f.clock.Set(at(300))
	expired, err := f.engine.SweepExpired(ctx)
	require.NoError(t, err)

	assert.Equal(t, []engine.ItemID{"a"}, expired)
	assert.False(t, f.engine.IsActive("a"))
	assert.True(t, f.engine.IsActive("b"))

	// Idempotent once swept.
	expired, err = f.engine.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
