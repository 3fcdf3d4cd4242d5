package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/remote"
)

// ErrSyncInFlight means a drain cycle is already running. Two concurrent
// drains would both read the same unsynced set and double-submit it, so
// only one is ever allowed.
var ErrSyncInFlight = errors.New("sync already in flight")

// DefaultCallTimeout bounds each remote call so one hung submission cannot
// stall the drain loop forever. Timeout is a retryable failure.
const DefaultCallTimeout = 10 * time.Second

// Outcome reports one drain cycle.
type Outcome struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Engine replays unsynced transactions against the backend.
type Engine struct {
	queue       *Queue
	remote      remote.Service
	callTimeout time.Duration
	mu          sync.Mutex
}

func NewEngine(q *Queue, svc remote.Service, callTimeout time.Duration) *Engine {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Engine{queue: q, remote: svc, callTimeout: callTimeout}
}

// Drain submits every unsynced transaction oldest-first. A single failure
// does not abort the cycle; the transaction records the error and the loop
// moves on, so one bad record never blocks the sales behind it.
func (e *Engine) Drain(ctx context.Context) (Outcome, error) {
	if !e.mu.TryLock() {
		return Outcome{}, ErrSyncInFlight
	}
	defer e.mu.Unlock()

	pending, err := e.queue.ListUnsynced(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(pending) == 0 {
		return Outcome{}, nil
	}
	obs.Logger.Info("sync starting", "pending", len(pending))

	var out Outcome
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if _, err := e.submit(ctx, t); err != nil {
			out.Failed++
			obs.Logger.Warn("sync attempt failed", "local_id", t.LocalID, "error", err)
			if merr := e.queue.markFailed(ctx, t, err); merr != nil {
				obs.Logger.Error("recording sync failure failed", "local_id", t.LocalID, "error", merr)
			}
			continue
		}
		if merr := e.queue.markSynced(ctx, t); merr != nil {
			// remote accepted but the local mark was lost; the client
			// reference keeps the retry idempotent
			out.Failed++
			obs.Logger.Error("recording sync success failed", "local_id", t.LocalID, "error", merr)
			continue
		}
		out.Succeeded++
	}

	obs.Logger.Info("sync finished", "succeeded", out.Succeeded, "failed", out.Failed)
	return out, nil
}

// SubmitQueued pushes one already-staged sale and updates its bookkeeping.
// On failure the attempt is recorded and the sale stays queued for the drain
// loop; because the retry reuses the client reference the sale was staged
// with, a submit that died after the header was accepted cannot produce a
// second remote transaction.
func (e *Engine) SubmitQueued(ctx context.Context, t model.QueuedTransaction) (string, error) {
	remoteID, err := e.submit(ctx, t)
	if err != nil {
		if merr := e.queue.markFailed(ctx, t, err); merr != nil {
			obs.Logger.Error("recording sync failure failed", "local_id", t.LocalID, "error", merr)
		}
		return "", err
	}
	if merr := e.queue.markSynced(ctx, t); merr != nil {
		obs.Logger.Error("recording sync success failed", "local_id", t.LocalID, "error", merr)
	}
	return remoteID, nil
}

// submit creates the remote header and then its line items. The original
// queuedAt travels as the creation timestamp so reporting reflects the
// actual sale time, not the sync time.
func (e *Engine) submit(ctx context.Context, t model.QueuedTransaction) (string, error) {
	hctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	header := model.HeaderFromSale(t.ClientRef, t.Payload, t.QueuedAt)
	remoteID, err := e.remote.CreateTransaction(hctx, header)
	if err != nil {
		return "", err
	}

	ictx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	if err := e.remote.CreateTransactionItems(ictx, model.ItemsFromSale(remoteID, t.Payload)); err != nil {
		return "", err
	}
	return remoteID, nil
}
