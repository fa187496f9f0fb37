package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sale-engine/engine"
	"github.com/warp/sale-engine/engine/enginetest"
	"github.com/warp/sale-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ts(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func TestStore_JournalAndRestore(t *testing.T) {
	// GIVEN: A journaled configure + purchases + status change
	store := newTestStore(t)
	ctx := context.Background()

	store.Emit(engine.SaleConfigured{
		Item: "7", Version: 1, Price: engine.NewAmount(2),
		StartTime: ts(100), EndTime: ts(200),
		MaxSupply: 10, MaxPerAddress: 3, PaymentToken: engine.NativeToken,
	})
	store.Emit(engine.PurchaseCompleted{
		ReceiptID: "r1", Item: "7", Version: 1, Buyer: "alice",
		Quantity: 2, Cost: engine.NewAmount(4), Token: engine.NativeToken, At: ts(150),
	})
	store.Emit(engine.PurchaseCompleted{
		ReceiptID: "r2", Item: "7", Version: 1, Buyer: "alice",
		Quantity: 1, Cost: engine.NewAmount(2), Token: engine.NativeToken, At: ts(160),
	})
	store.Emit(engine.SaleStatusChanged{Item: "7", Version: 1, Active: false})

	// WHEN: State is reloaded
	state, err := store.LoadState(ctx)
	require.NoError(t, err)

	// THEN: The sale snapshot and summed quota counters come back
	require.Len(t, state.Sales, 1)
	cfg := state.Sales[0]
	assert.Equal(t, engine.ItemID("7"), cfg.Item)
	assert.Equal(t, uint64(1), cfg.SaleVersion)
	assert.True(t, cfg.Price.Equal(engine.NewAmount(2)))
	assert.Equal(t, ts(100), cfg.StartTime)
	assert.Equal(t, ts(200), cfg.EndTime)
	assert.Equal(t, uint64(3), cfg.TotalSold)
	assert.False(t, cfg.Active)

	require.Len(t, state.Quotas, 1)
	assert.Equal(t, engine.QuotaEntry{Item: "7", Version: 1, Buyer: "alice", Bought: 3}, state.Quotas[0])

	n, err := store.EventCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestStore_ReconfigureResetsSnapshotButKeepsHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Emit(engine.SaleConfigured{
		Item: "7", Version: 1, Price: engine.NewAmount(2),
		StartTime: ts(100), EndTime: ts(200), MaxSupply: 10, PaymentToken: engine.NativeToken,
	})
	store.Emit(engine.PurchaseCompleted{
		ReceiptID: "r1", Item: "7", Version: 1, Buyer: "alice",
		Quantity: 3, Cost: engine.NewAmount(6), Token: engine.NativeToken, At: ts(150),
	})
	store.Emit(engine.SaleConfigured{
		Item: "7", Version: 2, Price: engine.NewAmount(5),
		StartTime: ts(100), EndTime: ts(300), MaxSupply: 8, PaymentToken: engine.NativeToken,
	})

	state, err := store.LoadState(ctx)
	require.NoError(t, err)

	// Snapshot shows the new generation with accounting reset...
	require.Len(t, state.Sales, 1)
	assert.Equal(t, uint64(2), state.Sales[0].SaleVersion)
	assert.Equal(t, uint64(0), state.Sales[0].TotalSold)
	assert.True(t, state.Sales[0].Price.Equal(engine.NewAmount(5)))

	// ...while the version-1 quota entry survives, inert.
	require.Len(t, state.Quotas, 1)
	assert.Equal(t, uint64(1), state.Quotas[0].Version)
	assert.Equal(t, uint64(3), state.Quotas[0].Bought)
}

func TestStore_RoundTripThroughEngine(t *testing.T) {
	// GIVEN: An engine journaling into the store
	store := newTestStore(t)
	ctx := context.Background()

	bank := enginetest.NewNativeBank()
	eng := engine.New("admin", "engine", bank, engine.WithEventSink(store))
	assets := enginetest.NewAssetLedger()
	require.NoError(t, eng.SetAssetLedger("admin", assets))
	require.NoError(t, eng.SetPaymentRecipient("admin", "treasury"))

	assets.Mint("engine", "7", 10)
	_, err := eng.Configure(ctx, "admin", engine.ConfigureSaleParams{
		Item: "7", Price: engine.NewAmount(1),
		StartTime: ts(0), EndTime: ts(1_000_000_000_000), MaxSupply: 10, MaxPerAddress: 5,
	})
	require.NoError(t, err)

	bank.Deposit("engine", engine.NewAmount(2))
	_, err = eng.Purchase(ctx, "alice", "7", 2, engine.NewAmount(2))
	require.NoError(t, err)

	// WHEN: A fresh engine restores from the store
	state, err := store.LoadState(ctx)
	require.NoError(t, err)
	restored := engine.New("admin", "engine", bank)
	restored.Restore(state)

	// THEN: Supply, quota and activity survive the restart
	cfg, err := restored.Sale("7")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cfg.TotalSold)
	assert.True(t, restored.IsActive("7"))

	status, err := restored.BuyerState(ctx, "7", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Purchased)
	assert.Equal(t, uint64(3), status.RemainingQuota)
}
