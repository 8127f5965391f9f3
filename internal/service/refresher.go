package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
)

// coalesceWindow batches bursts of change notifications (a cleanup commit
// touches missions, mission_analysis and points_log in quick succession)
// into a single re-fetch.
const coalesceWindow = 200 * time.Millisecond

// Refresher owns the live leaderboard state for one subscriber scope. Every
// period switch or data-change notification issues a new pipeline run with a
// monotonically increasing sequence number; only the completion of the most
// recently issued run may update the visible snapshot, so a slow stale run
// can never overwrite a fresher one.
type Refresher struct {
	svc LeaderboardService

	mu       sync.Mutex
	seq      uint64
	period   eco.Period
	snapshot *LeaderboardSnapshot
	loading  bool
	closed   bool

	updates chan *LeaderboardSnapshot
}

func NewRefresher(svc LeaderboardService, period eco.Period) *Refresher {
	return &Refresher{
		svc:     svc,
		period:  period,
		updates: make(chan *LeaderboardSnapshot, 8),
	}
}

// Updates delivers every snapshot that wins the sequence check. Slow
// consumers miss intermediate snapshots, never the ordering.
func (r *Refresher) Updates() <-chan *LeaderboardSnapshot {
	return r.updates
}

// Snapshot returns the last accepted snapshot (nil before the first run
// completes) and whether a newer run is still in flight. A stale snapshot
// stays visible while loading; the UI decides how to present that.
func (r *Refresher) Snapshot() (*LeaderboardSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, r.loading
}

func (r *Refresher) Period() eco.Period {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.period
}

// SetPeriod switches the active period and issues a run. Switching to the
// current period is a no-op.
func (r *Refresher) SetPeriod(ctx context.Context, period eco.Period) {
	r.mu.Lock()
	if r.closed || r.period == period {
		r.mu.Unlock()
		return
	}
	r.period = period
	seq, p := r.issueLocked()
	r.mu.Unlock()

	go r.run(ctx, seq, p)
}

// Refetch issues a run for the current period.
func (r *Refresher) Refetch(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	seq, p := r.issueLocked()
	r.mu.Unlock()

	go r.run(ctx, seq, p)
}

func (r *Refresher) issueLocked() (uint64, eco.Period) {
	r.seq++
	r.loading = true
	return r.seq, r.period
}

func (r *Refresher) run(ctx context.Context, seq uint64, period eco.Period) {
	snap, err := r.svc.Compute(ctx, period)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		// A newer run was issued while this one was in flight.
		return
	}
	r.loading = false
	if err != nil {
		// Keep the previous snapshot; a partial or failed fetch must
		// never surface as an empty leaderboard.
		log.Printf("Leaderboard refresh failed for period %s: %v", period, err)
		return
	}
	r.snapshot = snap
	if !r.closed {
		select {
		case r.updates <- snap:
		default:
		}
	}
}

// Listen consumes change notifications for the leaderboard's source tables
// and re-fetches after each coalesced burst. It blocks until ctx is done or
// the feed closes.
func (r *Refresher) Listen(ctx context.Context, feed *ChangeFeed) {
	pubsub := feed.Subscribe(ctx, TableMissions, TableMissionAnalysis, TablePointsLog)
	if pubsub == nil {
		return
	}
	defer pubsub.Close()

	debounce := time.NewTimer(coalesceWindow)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	pending := false
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if !pending {
				pending = true
				debounce.Reset(coalesceWindow)
			}
		case <-debounce.C:
			if pending {
				pending = false
				r.Refetch(ctx)
			}
		}
	}
}

// Close stops update delivery. Runs still in flight finish silently.
func (r *Refresher) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.updates)
}
