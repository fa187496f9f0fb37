/*
sweeper.go - Automated expiry sweeper

PURPOSE:
  Periodically deactivates sales whose time window has closed, so the
  active index and the sold-out/expired state converge without waiting
  for an admin call.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual work to the engine's expiry sweep
  - Sweeping is idempotent; overlapping manual sweeps are harmless

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewExpirySweeper(eng)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: SweepExpired endpoint (manual sweep)
  - engine/registry.go: The sweep itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/sale-engine/engine"
)

// ExpirySweeper deactivates expired sales on a timer.
type ExpirySweeper struct {
	Engine        *engine.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a new sweeper.
func NewExpirySweeper(eng *engine.Engine) *ExpirySweeper {
	return &ExpirySweeper{
		Engine:        eng,
		CheckInterval: 1 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (es *ExpirySweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Sweeper] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the sweeper.
func (es *ExpirySweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *ExpirySweeper) run() {
	defer es.wg.Done()

	// Run immediately on start
	es.sweep()

	for {
		select {
		case <-es.ticker.C:
			es.sweep()
		case <-es.stop:
			return
		}
	}
}

func (es *ExpirySweeper) sweep() {
	ctx := context.Background()

	swept, err := es.Engine.SweepExpired(ctx)
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}
	if len(swept) > 0 {
		log.Printf("[Sweeper] Deactivated %d expired sale(s): %v", len(swept), swept)
	}
}
