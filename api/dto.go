/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Sales:
    SaleDTO, ConfigureSaleRequest, UpdateSaleRequest, SetStatusRequest

  Purchases:
    PurchaseRequest, BatchPurchaseRequest, ReceiptDTO, ReceiptLineDTO

  Buyers:
    BuyerStatusDTO

  Admin:
    WithdrawItemsRequest, WithdrawFundsRequest, SetRecipientRequest,
    SetPausedRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

AMOUNTS AND TIMES:
  Monetary amounts travel as decimal strings ("12.5"), never floats.
  Times are RFC 3339 strings in UTC.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain types these map onto
*/
package api

import (
	"time"

	"github.com/warp/sale-engine/engine"
)

// =============================================================================
// SALE TYPES
// =============================================================================

// SaleDTO represents a configured sale in API responses.
type SaleDTO struct {
	Item          string `json:"item"`
	Price         string `json:"price"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	MaxSupply     uint64 `json:"max_supply"`
	MaxPerAddress uint64 `json:"max_per_address"`
	TotalSold     uint64 `json:"total_sold"`
	Remaining     uint64 `json:"remaining"`
	PaymentToken  string `json:"payment_token"`
	Active        bool   `json:"active"`
	SaleVersion   uint64 `json:"sale_version"`
}

// ConfigureSaleRequest is the request to configure a sale for an item.
type ConfigureSaleRequest struct {
	Item            string `json:"item"`
	Price           string `json:"price"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxSupply       uint64 `json:"max_supply"`
	MaxPerAddress   uint64 `json:"max_per_address"`
	PaymentToken    string `json:"payment_token,omitempty"`
	VerifyInventory bool   `json:"verify_inventory,omitempty"`
}

// UpdateSaleRequest patches the mutable parameters of an existing sale.
// Omitted fields keep their current values.
type UpdateSaleRequest struct {
	Price   *string `json:"price,omitempty"`
	EndTime *string `json:"end_time,omitempty"`
}

// SetStatusRequest activates or deactivates a sale.
type SetStatusRequest struct {
	Active bool `json:"active"`
}

// =============================================================================
// PURCHASE TYPES
// =============================================================================

// PurchaseRequest is a single-item purchase.
type PurchaseRequest struct {
	Buyer    string `json:"buyer"`
	Item     string `json:"item"`
	Quantity uint64 `json:"quantity"`
	Tendered string `json:"tendered,omitempty"`
}

// BatchPurchaseRequest is a multi-item purchase. Items and quantities
// are parallel slices.
type BatchPurchaseRequest struct {
	Buyer      string   `json:"buyer"`
	Items      []string `json:"items"`
	Quantities []uint64 `json:"quantities"`
	Tendered   string   `json:"tendered,omitempty"`
}

// ReceiptLineDTO is one settled line of a receipt.
type ReceiptLineDTO struct {
	Item         string `json:"item"`
	SaleVersion  uint64 `json:"sale_version"`
	Quantity     uint64 `json:"quantity"`
	Cost         string `json:"cost"`
	PaymentToken string `json:"payment_token"`
}

// ReceiptDTO is the outcome of a completed purchase.
type ReceiptDTO struct {
	ID           string           `json:"id"`
	Buyer        string           `json:"buyer"`
	Lines        []ReceiptLineDTO `json:"lines"`
	NativeCost   string           `json:"native_cost"`
	NativeRefund string           `json:"native_refund"`
	At           string           `json:"at"`
}

// =============================================================================
// BUYER TYPES
// =============================================================================

// BuyerStatusDTO reports a buyer's standing against one sale.
type BuyerStatusDTO struct {
	Item           string `json:"item"`
	Buyer          string `json:"buyer"`
	SaleVersion    uint64 `json:"sale_version"`
	Purchased      uint64 `json:"purchased"`
	RemainingQuota uint64 `json:"remaining_quota"`
	Unlimited      bool   `json:"unlimited"`
	Eligible       bool   `json:"eligible"`
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// WithdrawItemsRequest withdraws inventory units back to the caller.
type WithdrawItemsRequest struct {
	Items      []string `json:"items"`
	Quantities []uint64 `json:"quantities"`
}

// WithdrawFundsRequest withdraws collected proceeds. Token is empty for
// native withdrawals.
type WithdrawFundsRequest struct {
	Token string `json:"token,omitempty"`
}

// SetRecipientRequest changes the payment recipient account.
type SetRecipientRequest struct {
	Recipient string `json:"recipient"`
}

// SetPausedRequest toggles the purchase pause switch.
type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSaleDTO(cfg *engine.SaleConfig) SaleDTO {
	return SaleDTO{
		Item:          string(cfg.Item),
		Price:         cfg.Price.String(),
		StartTime:     cfg.StartTime.Format(time.RFC3339),
		EndTime:       cfg.EndTime.Format(time.RFC3339),
		MaxSupply:     cfg.MaxSupply,
		MaxPerAddress: cfg.MaxPerAddress,
		TotalSold:     cfg.TotalSold,
		Remaining:     cfg.Remaining(),
		PaymentToken:  string(cfg.PaymentToken),
		Active:        cfg.Active,
		SaleVersion:   cfg.SaleVersion,
	}
}

func toReceiptDTO(rc *engine.Receipt) ReceiptDTO {
	lines := make([]ReceiptLineDTO, 0, len(rc.Lines))
	for _, ln := range rc.Lines {
		lines = append(lines, ReceiptLineDTO{
			Item:         string(ln.Item),
			SaleVersion:  ln.Version,
			Quantity:     ln.Quantity,
			Cost:         ln.Cost.String(),
			PaymentToken: string(ln.Token),
		})
	}
	return ReceiptDTO{
		ID:           rc.ID,
		Buyer:        string(rc.Buyer),
		Lines:        lines,
		NativeCost:   rc.NativeSpent.String(),
		NativeRefund: rc.Refund.String(),
		At:           rc.At.Format(time.RFC3339),
	}
}

func toBuyerStatusDTO(st *engine.BuyerStatus) BuyerStatusDTO {
	return BuyerStatusDTO{
		Item:           string(st.Item),
		Buyer:          string(st.Buyer),
		SaleVersion:    st.Version,
		Purchased:      st.Purchased,
		RemainingQuota: st.RemainingQuota,
		Unlimited:      st.Unlimited,
		Eligible:       st.Eligible,
	}
}
