/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the engine with realistic
	sales, inventory, and funded buyer accounts for demos and manual
	testing. Each scenario demonstrates a specific admission or
	settlement feature.

AVAILABLE SCENARIOS:

	flash-drop:       Single native-priced sale with a tight per-buyer quota
	token-storefront: Three sales across two payment tokens plus native
	closing-soon:     A sale whose window ends minutes from load time

HOW SCENARIOS WORK:
 1. Mint item inventory into the engine's custody account
 2. Configure sales (inventory-verified)
 3. Fund demo buyer accounts with native and token balances

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "flash-drop"}

NOTE:

	Scenarios mint balances on in-memory ledgers. Only wire a
	ScenarioSet in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - engine/enginetest: The in-memory ledgers scenarios seed
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/sale-engine/engine"
	"github.com/warp/sale-engine/engine/enginetest"
)

// ErrUnknownScenario is returned for scenario IDs not in the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Demo buyer accounts funded by every scenario.
const (
	DemoBuyerOne engine.AccountID = "demo-buyer-1"
	DemoBuyerTwo engine.AccountID = "demo-buyer-2"
)

// ScenarioSet seeds an engine backed by in-memory ledgers.
type ScenarioSet struct {
	Engine *engine.Engine
	Assets *enginetest.AssetLedger
	Tokens *enginetest.TokenLedger
	Bank   *enginetest.NativeBank
	Admin  engine.AccountID
}

var scenarioCatalog = []ScenarioDTO{
	{
		ID:          "flash-drop",
		Name:        "Flash Drop",
		Description: "One native-priced item, 100 units, max 2 per buyer, 1 hour window",
	},
	{
		ID:          "token-storefront",
		Name:        "Token Storefront",
		Description: "Three items priced in gold, silver, and native currency",
	},
	{
		ID:          "closing-soon",
		Name:        "Closing Soon",
		Description: "A sale whose window closes five minutes after loading",
	},
}

// List returns the scenario catalog.
func (s *ScenarioSet) List() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarioCatalog))
	copy(out, scenarioCatalog)
	return out
}

// Load seeds the requested scenario.
func (s *ScenarioSet) Load(ctx context.Context, id string) error {
	switch id {
	case "flash-drop":
		return s.loadFlashDrop(ctx)
	case "token-storefront":
		return s.loadTokenStorefront(ctx)
	case "closing-soon":
		return s.loadClosingSoon(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
}

func (s *ScenarioSet) loadFlashDrop(ctx context.Context) error {
	now := time.Now().UTC()
	self := s.Engine.Self()

	s.Assets.Mint(self, "sneaker-x", 100)
	s.Bank.Deposit(DemoBuyerOne, engine.NewAmount(500))
	s.Bank.Deposit(DemoBuyerTwo, engine.NewAmount(500))

	_, err := s.Engine.Configure(ctx, s.Admin, engine.ConfigureSaleParams{
		Item:            "sneaker-x",
		Price:           engine.MustParseAmount("25"),
		StartTime:       now.Add(-time.Minute),
		EndTime:         now.Add(time.Hour),
		MaxSupply:       100,
		MaxPerAddress:   2,
		PaymentToken:    engine.NativeToken,
		VerifyInventory: true,
	})
	return err
}

func (s *ScenarioSet) loadTokenStorefront(ctx context.Context) error {
	now := time.Now().UTC()
	self := s.Engine.Self()

	sales := []engine.ConfigureSaleParams{
		{
			Item:          "emblem",
			Price:         engine.MustParseAmount("10"),
			MaxSupply:     50,
			MaxPerAddress: 5,
			PaymentToken:  "gold",
		},
		{
			Item:          "banner",
			Price:         engine.MustParseAmount("4"),
			MaxSupply:     80,
			MaxPerAddress: 10,
			PaymentToken:  "silver",
		},
		{
			Item:          "crest",
			Price:         engine.MustParseAmount("2.5"),
			MaxSupply:     200,
			MaxPerAddress: 0,
			PaymentToken:  engine.NativeToken,
		},
	}

	for _, buyer := range []engine.AccountID{DemoBuyerOne, DemoBuyerTwo} {
		s.Tokens.Mint("gold", buyer, engine.NewAmount(200))
		s.Tokens.Mint("silver", buyer, engine.NewAmount(200))
		s.Bank.Deposit(buyer, engine.NewAmount(200))
	}

	for _, p := range sales {
		p.StartTime = now.Add(-time.Minute)
		p.EndTime = now.Add(24 * time.Hour)
		p.VerifyInventory = true
		s.Assets.Mint(self, p.Item, p.MaxSupply)
		if _, err := s.Engine.Configure(ctx, s.Admin, p); err != nil {
			return fmt.Errorf("configure %s: %w", p.Item, err)
		}
	}
	return nil
}

func (s *ScenarioSet) loadClosingSoon(ctx context.Context) error {
	now := time.Now().UTC()
	self := s.Engine.Self()

	s.Assets.Mint(self, "final-call", 10)
	s.Bank.Deposit(DemoBuyerOne, engine.NewAmount(100))

	_, err := s.Engine.Configure(ctx, s.Admin, engine.ConfigureSaleParams{
		Item:            "final-call",
		Price:           engine.MustParseAmount("9.99"),
		StartTime:       now.Add(-time.Minute),
		EndTime:         now.Add(5 * time.Minute),
		MaxSupply:       10,
		MaxPerAddress:   1,
		PaymentToken:    engine.NativeToken,
		VerifyInventory: true,
	})
	return err
}
