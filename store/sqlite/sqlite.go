/*
Package sqlite provides the SQLite-backed event journal for the sale engine.

PURPOSE:
  The engine owns its state in memory; this package makes it durable. The
  Store consumes the engine's event stream (it implements engine.EventSink),
  appends every event to an immutable journal, and materializes the current
  sale table plus the cumulative purchase log. On restart, LoadState rebuilds
  the engine's registry, active set, and quota ledger from those tables.

KEY TABLES:
  events:     Append-only journal of every emitted event (JSON payloads)
  sales:      Current SaleConfig per item, updated as config events arrive
  purchases:  Append-only purchase log; quota counters are SUM(quantity)
              grouped by (item, sale_version, buyer)

APPEND-ONLY ENFORCEMENT:
  events and purchases are never updated or deleted. Only the sales table is
  mutated in place, and only because it mirrors a current-state snapshot the
  engine already owns; history lives in the journal.

ERROR POLICY:
  Emit must never fail the request that produced the event - the engine has
  already committed. Persistence failures are logged and the journal catches
  up on the next event; LoadState remains the source of truth for restarts.

WAL MODE:
  SQLite is opened with WAL for better crash recovery and non-blocking reads.

USAGE:
  store, err := sqlite.New("./data/sales.db")
  eng := engine.New(admin, self, bank, engine.WithEventSink(store))
  state, _ := store.LoadState(ctx)
  eng.Restore(state)

SEE ALSO:
  - engine/events.go: The event types journaled here
  - engine/engine.go: Restore
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/sale-engine/engine"
)

// Store journals engine events and materializes restorable state.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Append-only journal of every engine event
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		name TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	-- Current sale config per item (snapshot; history is in events)
	CREATE TABLE IF NOT EXISTS sales (
		item TEXT PRIMARY KEY,
		sale_version INTEGER NOT NULL,
		price TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		max_supply INTEGER NOT NULL,
		max_per_address INTEGER NOT NULL,
		payment_token TEXT NOT NULL,
		total_sold INTEGER NOT NULL,
		active INTEGER NOT NULL
	);

	-- Append-only purchase log
	CREATE TABLE IF NOT EXISTS purchases (
		receipt_id TEXT NOT NULL,
		item TEXT NOT NULL,
		sale_version INTEGER NOT NULL,
		buyer TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		cost TEXT NOT NULL,
		payment_token TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_quota
		ON purchases(item, sale_version, buyer);
	CREATE INDEX IF NOT EXISTS idx_events_name
		ON events(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT SINK
// =============================================================================

// Emit journals the event and updates the materialized tables.
// Never fails the caller; persistence errors are logged.
func (s *Store) Emit(ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.append(ev); err != nil {
		log.Printf("sqlite journal: failed to persist %s: %v", ev.EventName(), err)
	}
}

func (s *Store) append(ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO events (at, name, payload) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), ev.EventName(), string(payload),
	); err != nil {
		return err
	}

	if err := s.materialize(tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) materialize(tx *sql.Tx, ev engine.Event) error {
	switch e := ev.(type) {
	case engine.SaleConfigured:
		_, err := tx.Exec(`
			INSERT INTO sales (item, sale_version, price, start_time, end_time,
				max_supply, max_per_address, payment_token, total_sold, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 1)
			ON CONFLICT(item) DO UPDATE SET
				sale_version = excluded.sale_version,
				price = excluded.price,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				max_supply = excluded.max_supply,
				max_per_address = excluded.max_per_address,
				payment_token = excluded.payment_token,
				total_sold = 0,
				active = 1`,
			string(e.Item), e.Version, e.Price.String(),
			e.StartTime.UTC().Format(time.RFC3339), e.EndTime.UTC().Format(time.RFC3339),
			e.MaxSupply, e.MaxPerAddress, string(e.PaymentToken))
		return err

	case engine.SaleParamsUpdated:
		_, err := tx.Exec(
			`UPDATE sales SET price = ?, end_time = ? WHERE item = ?`,
			e.NewPrice.String(), e.NewEnd.UTC().Format(time.RFC3339), string(e.Item))
		return err

	case engine.SaleStatusChanged:
		active := 0
		if e.Active {
			active = 1
		}
		_, err := tx.Exec(`UPDATE sales SET active = ? WHERE item = ?`, active, string(e.Item))
		return err

	case engine.PurchaseCompleted:
		if _, err := tx.Exec(`
			INSERT INTO purchases (receipt_id, item, sale_version, buyer, quantity, cost, payment_token, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ReceiptID, string(e.Item), e.Version, string(e.Buyer), e.Quantity,
			e.Cost.String(), string(e.Token), e.At.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		_, err := tx.Exec(
			`UPDATE sales SET total_sold = total_sold + ? WHERE item = ? AND sale_version = ?`,
			e.Quantity, string(e.Item), e.Version)
		return err
	}

	// Wiring, pause, and withdrawal events are journal-only.
	return nil
}

// =============================================================================
// RESTORE
// =============================================================================

// LoadState rebuilds the engine's restorable state from the materialized
// tables: every configured sale plus every quota counter, current and
// superseded versions alike.
func (s *Store) LoadState(ctx context.Context) (engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state engine.State

	rows, err := s.db.QueryContext(ctx, `
		SELECT item, sale_version, price, start_time, end_time,
			max_supply, max_per_address, payment_token, total_sold, active
		FROM sales`)
	if err != nil {
		return state, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item, price, start, end, token string
			active                         int
			cfg                            engine.SaleConfig
		)
		if err := rows.Scan(&item, &cfg.SaleVersion, &price, &start, &end,
			&cfg.MaxSupply, &cfg.MaxPerAddress, &token, &cfg.TotalSold, &active); err != nil {
			return state, err
		}
		cfg.Item = engine.ItemID(item)
		cfg.Price = engine.MustParseAmount(price)
		cfg.PaymentToken = engine.TokenID(token)
		cfg.Active = active != 0
		if cfg.StartTime, err = time.Parse(time.RFC3339, start); err != nil {
			return state, fmt.Errorf("sale %s: bad start_time: %w", item, err)
		}
		if cfg.EndTime, err = time.Parse(time.RFC3339, end); err != nil {
			return state, fmt.Errorf("sale %s: bad end_time: %w", item, err)
		}
		state.Sales = append(state.Sales, cfg)
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	qrows, err := s.db.QueryContext(ctx, `
		SELECT item, sale_version, buyer, SUM(quantity)
		FROM purchases
		GROUP BY item, sale_version, buyer`)
	if err != nil {
		return state, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var (
			item, buyer string
			q           engine.QuotaEntry
		)
		if err := qrows.Scan(&item, &q.Version, &buyer, &q.Bought); err != nil {
			return state, err
		}
		q.Item = engine.ItemID(item)
		q.Buyer = engine.AccountID(buyer)
		state.Quotas = append(state.Quotas, q)
	}
	return state, qrows.Err()
}

// EventCount returns how many events have been journaled. Diagnostics.
func (s *Store) EventCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
