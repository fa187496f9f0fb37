/*
handlers.go - HTTP API handlers for the sale admission and settlement engine

PURPOSE:
  Exposes the sale engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Sales:
    GET    /api/sales                  List active sales (paginated)
    POST   /api/sales                  Configure a sale (admin)
    GET    /api/sales/live             Sales currently open for purchase
    GET    /api/sales/{item}           Sale details
    PATCH  /api/sales/{item}           Update price/end time (admin)
    POST   /api/sales/{item}/status    Activate or deactivate (admin)
    GET    /api/sales/{item}/buyers/{buyer}  Buyer quota and eligibility

  Purchases:
    POST   /api/purchases              Single-item purchase
    POST   /api/purchases/batch        Multi-item, per-entry settlement
    POST   /api/purchases/batch/aggregated  Multi-item, grouped settlement

  Admin:
    POST   /api/admin/pause            Pause or resume purchases
    POST   /api/admin/recipient        Change payment recipient
    POST   /api/admin/withdraw/items   Pull unsold inventory
    POST   /api/admin/withdraw/funds   Sweep native or token proceeds
    POST   /api/admin/sweep            Deactivate expired sales

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

NATIVE TENDER:
  HTTP requests carry tender as a decimal string. Before invoking the
  engine the handler moves that amount from the buyer's bank account
  into the engine's custody account; if the engine rejects the request
  the handler moves it back. This mirrors a value-bearing call where
  funds accompany the message.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: The admission/settlement engine
  - Bank: Native funds mover for the tender flow above
  - Metrics: Prometheus counters (optional)
  - Scenarios: Demo fixtures (dev only)

AUTHORIZATION:
  Admin endpoints read the caller account from the X-Caller-Account
  header and let the engine enforce admin checks. There is no
  authentication layer; deploy behind one.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, admission failures, bad shape
  - 402: Insufficient payment
  - 403: Caller is not the admin
  - 404: Unknown item
  - 409: Sale still active, reentrant call
  - 503: Engine paused
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/sale-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	Engine    *engine.Engine
	Bank      engine.NativeBank
	Clock     engine.Clock
	Metrics   *Metrics
	Scenarios *ScenarioSet
}

// NewHandler wires a handler over an engine and its bank.
func NewHandler(eng *engine.Engine, bank engine.NativeBank) *Handler {
	return &Handler{
		Engine: eng,
		Bank:   bank,
		Clock:  engine.SystemClock{},
	}
}

func (h *Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now()
	}
	return time.Now().UTC()
}

// caller extracts the acting account for admin operations.
func caller(r *http.Request) engine.AccountID {
	return engine.AccountID(r.Header.Get("X-Caller-Account"))
}

// =============================================================================
// SALE ENDPOINTS
// =============================================================================

// ListSales returns the active sales, paginated.
// GET /api/sales?page=0&per_page=50
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	perPage := queryInt(r, "per_page", 50)

	sales := h.Engine.ActiveSales(page, perPage)
	out := make([]SaleDTO, 0, len(sales))
	for i := range sales {
		out = append(out, toSaleDTO(&sales[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListLiveSales returns sales that are active, inside their window, and
// not sold out.
// GET /api/sales/live
func (h *Handler) ListLiveSales(w http.ResponseWriter, r *http.Request) {
	sales := h.Engine.LiveSales(h.now())
	out := make([]SaleDTO, 0, len(sales))
	for i := range sales {
		out = append(out, toSaleDTO(&sales[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSale returns one sale's configuration and counters.
// GET /api/sales/{item}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	item := engine.ItemID(chi.URLParam(r, "item"))

	cfg, err := h.Engine.Sale(item)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(&cfg))
}

// ConfigureSale creates or replaces a sale. Admin only.
// POST /api/sales
func (h *Handler) ConfigureSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ConfigureSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Item == "" {
		writeError(w, http.StatusBadRequest, "item is required", nil)
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price", err)
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time", err)
		return
	}
	end, err := parseTime(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time", err)
		return
	}

	token := engine.NativeToken
	if req.PaymentToken != "" {
		token = engine.TokenID(req.PaymentToken)
	}

	cfg, err := h.Engine.Configure(ctx, caller(r), engine.ConfigureSaleParams{
		Item:            engine.ItemID(req.Item),
		Price:           price,
		StartTime:       start,
		EndTime:         end,
		MaxSupply:       req.MaxSupply,
		MaxPerAddress:   req.MaxPerAddress,
		PaymentToken:    token,
		VerifyInventory: req.VerifyInventory,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.SalesConfigured.Inc()
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(cfg))
}

// UpdateSale patches the price and/or end time of an existing sale.
// Admin only.
// PATCH /api/sales/{item}
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	item := engine.ItemID(chi.URLParam(r, "item"))

	var req UpdateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	cfg, err := h.Engine.Sale(item)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	price := cfg.Price
	if req.Price != nil {
		price, err = parseAmount(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price", err)
			return
		}
	}
	end := cfg.EndTime
	if req.EndTime != nil {
		end, err = parseTime(*req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_time", err)
			return
		}
	}

	if err := h.Engine.UpdateParams(caller(r), item, price, end); err != nil {
		writeEngineError(w, err)
		return
	}

	updated, err := h.Engine.Sale(item)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(&updated))
}

// SetSaleStatus activates or deactivates a sale. Admin only.
// POST /api/sales/{item}/status
func (h *Handler) SetSaleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item := engine.ItemID(chi.URLParam(r, "item"))

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Engine.SetActive(ctx, caller(r), item, req.Active); err != nil {
		writeEngineError(w, err)
		return
	}

	cfg, err := h.Engine.Sale(item)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(&cfg))
}

// GetBuyerStatus reports a buyer's purchases, remaining quota, and
// whether one more unit would be admitted right now.
// GET /api/sales/{item}/buyers/{buyer}
func (h *Handler) GetBuyerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item := engine.ItemID(chi.URLParam(r, "item"))
	buyer := engine.AccountID(chi.URLParam(r, "buyer"))

	st, err := h.Engine.BuyerState(ctx, item, buyer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBuyerStatusDTO(&st))
}

// =============================================================================
// PURCHASE ENDPOINTS
// =============================================================================

// Purchase buys a quantity of a single item.
// POST /api/purchases
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "buyer is required", nil)
		return
	}

	h.runPurchase(w, r, req.Buyer, req.Tendered, func(ctx context.Context, buyer engine.AccountID, tendered engine.Amount) (*engine.Receipt, error) {
		return h.Engine.Purchase(ctx, buyer, engine.ItemID(req.Item), req.Quantity, tendered)
	})
}

// PurchaseBatch buys several items, settling each entry separately.
// POST /api/purchases/batch
func (h *Handler) PurchaseBatch(w http.ResponseWriter, r *http.Request) {
	h.batchPurchase(w, r, h.Engine.PurchaseBatch)
}

// PurchaseBatchAggregated buys several items with one transfer per
// payment token.
// POST /api/purchases/batch/aggregated
func (h *Handler) PurchaseBatchAggregated(w http.ResponseWriter, r *http.Request) {
	h.batchPurchase(w, r, h.Engine.PurchaseBatchAggregated)
}

type batchFn func(ctx context.Context, buyer engine.AccountID, items []engine.ItemID, quantities []uint64, tendered engine.Amount) (*engine.Receipt, error)

func (h *Handler) batchPurchase(w http.ResponseWriter, r *http.Request, buy batchFn) {
	var req BatchPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "buyer is required", nil)
		return
	}

	items := make([]engine.ItemID, len(req.Items))
	for i, it := range req.Items {
		items[i] = engine.ItemID(it)
	}

	h.runPurchase(w, r, req.Buyer, req.Tendered, func(ctx context.Context, buyer engine.AccountID, tendered engine.Amount) (*engine.Receipt, error) {
		return buy(ctx, buyer, items, req.Quantities, tendered)
	})
}

// runPurchase handles the shared tender escrow around an engine call:
// move the tender into custody, run the purchase, move it back on
// failure.
func (h *Handler) runPurchase(w http.ResponseWriter, r *http.Request, buyerID, tenderedStr string, buy func(context.Context, engine.AccountID, engine.Amount) (*engine.Receipt, error)) {
	ctx := r.Context()
	buyer := engine.AccountID(buyerID)

	tendered := engine.ZeroAmount()
	if tenderedStr != "" {
		var err error
		tendered, err = parseAmount(tenderedStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tendered amount", err)
			return
		}
		if tendered.IsNegative() {
			writeError(w, http.StatusBadRequest, "tendered amount must not be negative", nil)
			return
		}
	}

	if tendered.IsPositive() {
		if err := h.Bank.Transfer(ctx, buyer, h.Engine.Self(), tendered); err != nil {
			writeError(w, http.StatusPaymentRequired, "could not escrow tender", err)
			return
		}
	}

	receipt, err := buy(ctx, buyer, tendered)
	if err != nil {
		if tendered.IsPositive() {
			// Escrow was never spent; hand it back before reporting.
			if rerr := h.Bank.Transfer(ctx, h.Engine.Self(), buyer, tendered); rerr != nil {
				writeError(w, http.StatusInternalServerError, "purchase failed and tender return failed", rerr)
				return
			}
		}
		if h.Metrics != nil {
			h.Metrics.PurchasesRejected.WithLabelValues(rejectionReason(err)).Inc()
		}
		writeEngineError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.PurchasesCompleted.Inc()
		for _, ln := range receipt.Lines {
			h.Metrics.UnitsSold.Add(float64(ln.Quantity))
		}
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(receipt))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// SetPaused toggles the purchase pause switch. Admin only.
// POST /api/admin/pause
func (h *Handler) SetPaused(w http.ResponseWriter, r *http.Request) {
	var req SetPausedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Engine.SetPaused(caller(r), req.Paused); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

// SetRecipient changes the payment recipient account. Admin only.
// POST /api/admin/recipient
func (h *Handler) SetRecipient(w http.ResponseWriter, r *http.Request) {
	var req SetRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required", nil)
		return
	}

	if err := h.Engine.SetPaymentRecipient(caller(r), engine.AccountID(req.Recipient)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recipient": req.Recipient})
}

// WithdrawItems pulls unsold inventory units back to the caller.
// Admin only.
// POST /api/admin/withdraw/items
func (h *Handler) WithdrawItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WithdrawItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	items := make([]engine.ItemID, len(req.Items))
	for i, it := range req.Items {
		items[i] = engine.ItemID(it)
	}

	if err := h.Engine.WithdrawItems(ctx, caller(r), items, req.Quantities); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// WithdrawFunds sweeps collected proceeds to the caller. Native when no
// token is given, otherwise the named token. Admin only.
// POST /api/admin/withdraw/funds
func (h *Handler) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WithdrawFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var (
		amount engine.Amount
		err    error
	)
	if req.Token == "" || engine.TokenID(req.Token).IsNative() {
		amount, err = h.Engine.WithdrawNativeBalance(ctx, caller(r))
	} else {
		amount, err = h.Engine.WithdrawTokenBalance(ctx, caller(r), engine.TokenID(req.Token))
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

// SweepExpired deactivates sales whose window has closed.
// POST /api/admin/sweep
func (h *Handler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	swept, err := h.Engine.SweepExpired(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]string, 0, len(swept))
	for _, it := range swept {
		out = append(out, string(it))
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": out})
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if h.Scenarios == nil {
		writeJSON(w, http.StatusOK, []ScenarioDTO{})
		return
	}
	writeJSON(w, http.StatusOK, h.Scenarios.List())
}

// LoadScenario seeds the engine with a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Scenarios == nil {
		writeError(w, http.StatusNotFound, "scenarios are not enabled", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Scenarios.Load(ctx, req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusNotFound, "unknown scenario", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "scenario load failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// Health is a liveness probe.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAmount(s string) (engine.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.ZeroAmount(), err
	}
	return engine.NewAmountFromDecimal(d), nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps domain errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case engine.IsUnauthorized(err):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, engine.ErrPaused):
		writeError(w, http.StatusServiceUnavailable, "purchases are paused", err)
	case errors.Is(err, engine.ErrReentrantCall):
		writeError(w, http.StatusConflict, "conflicting request in flight", err)
	case errors.Is(err, engine.ErrSaleMustBeInactive):
		writeError(w, http.StatusConflict, "sale is still active", err)
	case errors.Is(err, engine.ErrInsufficientPayment):
		writeError(w, http.StatusPaymentRequired, "insufficient payment", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "request rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// rejectionReason buckets purchase failures for metrics labels.
func rejectionReason(err error) string {
	var adm *engine.AdmissionError
	switch {
	case errors.As(err, &adm):
		return adm.Check
	case errors.Is(err, engine.ErrInsufficientPayment):
		return "payment"
	case errors.Is(err, engine.ErrUnexpectedNativeTender):
		return "payment"
	case errors.Is(err, engine.ErrPaused):
		return "paused"
	case errors.Is(err, engine.ErrSaleNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrDuplicateItem),
		errors.Is(err, engine.ErrLengthMismatch),
		errors.Is(err, engine.ErrEmptyBatch),
		errors.Is(err, engine.ErrBatchTooLarge),
		errors.Is(err, engine.ErrZeroQuantity):
		return "shape"
	default:
		return "other"
	}
}
