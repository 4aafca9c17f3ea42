/*
scheduler.go - Automated credit reclassification scheduler

PURPOSE:
  Periodically sweeps active credits whose due date has passed and
  reclassifies them as overdue, so listings and dashboards stay
  accurate even when nobody hits the /credits endpoints.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual sweep to the credit engine, which is
    idempotent (already-overdue credits are left alone)
  - Sweeps once immediately on start, then on every tick

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewReclassifyScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReclassifyCredits endpoint (manual sweep)
  - tontine/credit.go: CreditEngine.ReclassifyOverdue
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/tontine-engine/tontine"
)

// ReclassifyScheduler keeps credit statuses current in the background.
type ReclassifyScheduler struct {
	Credits       *tontine.CreditEngine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReclassifyScheduler creates a scheduler with default settings.
func NewReclassifyScheduler(store tontine.TxStore) *ReclassifyScheduler {
	return &ReclassifyScheduler{
		Credits:       &tontine.CreditEngine{Store: store},
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *ReclassifyScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler and waits for any in-flight sweep.
func (rs *ReclassifyScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReclassifyScheduler) run() {
	defer rs.wg.Done()

	// Sweep immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReclassifyScheduler) sweep() {
	ctx := context.Background()

	n, err := rs.Credits.ReclassifyOverdue(ctx, tontine.Today())
	if err != nil {
		log.Printf("[Scheduler] Error reclassifying credits: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Scheduler] Reclassified %d credit(s) as overdue", n)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *ReclassifyScheduler) RunNow() {
	rs.sweep()
}
