package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
)

// DefaultDrainBudget bounds one background drain cycle.
const DefaultDrainBudget = 2 * time.Minute

// Kicker turns fire-and-forget sync kicks into serialized drain cycles.
// A kick arriving while a drain is running collapses into one rerun, so a
// sale enqueued mid-drain is picked up as soon as the running cycle ends
// instead of waiting for some later trigger.
type Kicker struct {
	engine      *Engine
	drainBudget time.Duration
	retryDelay  time.Duration

	mu      sync.Mutex
	running bool
	rerun   bool
}

func NewKicker(e *Engine) *Kicker {
	return &Kicker{
		engine:      e,
		drainBudget: DefaultDrainBudget,
		retryDelay:  time.Second,
	}
}

// Kick requests a background drain. Never blocks.
func (k *Kicker) Kick() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		k.rerun = true
		return
	}
	k.running = true
	go k.run()
}

func (k *Kicker) run() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), k.drainBudget)
		_, err := k.engine.Drain(ctx)
		cancel()
		switch {
		case errors.Is(err, ErrSyncInFlight):
			// another trigger owns the engine; go again once it frees up
			k.mu.Lock()
			k.rerun = true
			k.mu.Unlock()
			time.Sleep(k.retryDelay)
		case err != nil:
			obs.Logger.Warn("background sync failed", "error", err)
		}

		k.mu.Lock()
		if !k.rerun {
			k.running = false
			k.mu.Unlock()
			return
		}
		k.rerun = false
		k.mu.Unlock()
	}
}
