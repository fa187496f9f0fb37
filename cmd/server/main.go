/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the sale admission and settlement server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply command-line overrides
  2. Open the SQLite event journal and replay prior state
  3. Build the engine over in-memory ledgers
  4. Configure HTTP router and background sweeper
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory journal

LEDGERS:
  This binary wires the engine to in-memory asset/token/native ledgers,
  which is what the demo scenarios expect. A production deployment
  substitutes real ledger clients behind the same interfaces.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/sales.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Event journal
  - internal/config/config.go: Environment configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/sale-engine/api"
	"github.com/warp/sale-engine/engine"
	"github.com/warp/sale-engine/engine/enginetest"
	"github.com/warp/sale-engine/internal/config"
	"github.com/warp/sale-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize the event journal
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	admin := engine.AccountID(cfg.AdminAccount)
	custody := engine.AccountID(cfg.CustodyAccount)

	// In-memory ledgers back the demo deployment
	assets := enginetest.NewAssetLedger()
	tokens := enginetest.NewTokenLedger()
	bank := enginetest.NewNativeBank()

	eng := engine.New(admin, custody, bank,
		engine.WithTokenLedger(tokens),
		engine.WithEventSink(store),
		engine.WithMaxBatch(cfg.MaxBatch),
	)

	// Replay journaled sales and quotas from prior runs
	state, err := store.LoadState(context.Background())
	if err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}
	eng.Restore(state)
	if n := len(state.Sales); n > 0 {
		log.Printf("Restored %d sale(s) from %s", n, *dbPath)
	}

	if err := eng.SetAssetLedger(admin, assets); err != nil {
		log.Fatalf("Failed to wire asset ledger: %v", err)
	}
	if err := eng.SetPaymentRecipient(admin, engine.AccountID(cfg.RecipientAccount)); err != nil {
		log.Fatalf("Failed to set payment recipient: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(eng, bank)
	handler.Metrics = api.NewMetrics(eng)
	if cfg.EnableScenarios {
		handler.Scenarios = &api.ScenarioSet{
			Engine: eng,
			Assets: assets,
			Tokens: tokens,
			Bank:   bank,
			Admin:  admin,
		}
	}

	// Background expiry sweeper
	sweeper := api.NewExpirySweeper(eng)
	sweeper.CheckInterval = cfg.SweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
