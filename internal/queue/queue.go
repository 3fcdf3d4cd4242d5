// Package queue is the offline sale queue and its sync engine. A completed
// sale is always accepted and durably recorded locally; syncing it to the
// backend is a background concern. A sale is never silently dropped: an
// unsynced duplicate or a delay always beats a lost sale.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/store"
)

// ErrInvalidPayload rejects an enqueue synchronously so the cashier sees the
// problem immediately.
var ErrInvalidPayload = errors.New("invalid sale payload")

// DefaultRetryThreshold is the attempt count beyond which an unsynced
// transaction is classified as failed and flagged for human attention.
// Retries keep going regardless.
const DefaultRetryThreshold = 3

// Status is the aggregate queue state exposed to the UI.
type Status struct {
	Total    int `json:"total"`
	Synced   int `json:"synced"`
	Unsynced int `json:"unsynced"`
	Failed   int `json:"failed"`
}

type Queue struct {
	store          *store.Store
	monitor        *connectivity.Monitor
	retryThreshold int
	trigger        func()
	now            func() time.Time
}

func New(s *store.Store, monitor *connectivity.Monitor, retryThreshold int) *Queue {
	if retryThreshold <= 0 {
		retryThreshold = DefaultRetryThreshold
	}
	return &Queue{
		store:          s,
		monitor:        monitor,
		retryThreshold: retryThreshold,
		now:            time.Now,
	}
}

// SetSyncTrigger registers the async drain kick used after an enqueue while
// online. The composition root wires this to the sync engine.
func (q *Queue) SetSyncTrigger(fn func()) { q.trigger = fn }

// Stage validates and durably records a completed sale as unsynced without
// kicking the background sync. Checkout uses it ahead of a direct submit so
// the submit and any later retry share one client reference.
func (q *Queue) Stage(ctx context.Context, payload model.SalePayload) (model.QueuedTransaction, error) {
	if err := payload.Validate(); err != nil {
		return model.QueuedTransaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	t := model.QueuedTransaction{
		ClientRef:    uuid.NewString(),
		Payload:      payload,
		QueuedAt:     q.now().UTC(),
		Synced:       false,
		SyncAttempts: 0,
	}

	localID, err := q.store.Put(ctx, store.OfflineTransactions, t)
	if err != nil {
		return model.QueuedTransaction{}, err
	}
	t.LocalID = localID
	return t, nil
}

// Enqueue records a completed sale as unsynced, regardless of connectivity.
// If the monitor reports online, an async sync is kicked off; checkout never
// waits for it.
func (q *Queue) Enqueue(ctx context.Context, payload model.SalePayload) (int64, error) {
	t, err := q.Stage(ctx, payload)
	if err != nil {
		return 0, err
	}
	obs.Logger.Info("sale queued", "local_id", t.LocalID)

	if q.monitor.Online() && q.trigger != nil {
		go q.trigger()
	}
	return t.LocalID, nil
}

// ListUnsynced returns unsynced transactions oldest-first, so replay keeps
// the store's sales timeline in order.
func (q *Queue) ListUnsynced(ctx context.Context) ([]model.QueuedTransaction, error) {
	docs, err := q.store.GetByIndex(ctx, store.OfflineTransactions, "synced", false)
	if err != nil {
		return nil, err
	}
	out, err := store.DecodeAll[model.QueuedTransaction](docs)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].LocalID < out[j].LocalID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out, nil
}

// SyncStatus returns aggregate counts over the whole queue.
func (q *Queue) SyncStatus(ctx context.Context) (Status, error) {
	docs, err := q.store.GetAll(ctx, store.OfflineTransactions)
	if err != nil {
		return Status{}, err
	}
	all, err := store.DecodeAll[model.QueuedTransaction](docs)
	if err != nil {
		return Status{}, err
	}

	st := Status{Total: len(all)}
	for _, t := range all {
		if t.Synced {
			st.Synced++
			continue
		}
		st.Unsynced++
		if t.SyncAttempts > q.retryThreshold {
			st.Failed++
		}
	}
	return st, nil
}

// ClearSynced deletes transactions the backend has already accepted.
func (q *Queue) ClearSynced(ctx context.Context) (int, error) {
	docs, err := q.store.GetAll(ctx, store.OfflineTransactions)
	if err != nil {
		return 0, err
	}
	all, err := store.DecodeAll[model.QueuedTransaction](docs)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, t := range all {
		if !t.Synced {
			continue
		}
		if err := q.store.Delete(ctx, store.OfflineTransactions, t.LocalID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// markSynced records remote acceptance. The payload itself never changes.
func (q *Queue) markSynced(ctx context.Context, t model.QueuedTransaction) error {
	t.Synced = true
	t.SyncAttempts++
	t.LastError = nil
	_, err := q.store.Put(ctx, store.OfflineTransactions, t)
	return err
}

// markFailed records a failed attempt; the transaction stays eligible for
// retry indefinitely.
func (q *Queue) markFailed(ctx context.Context, t model.QueuedTransaction, cause error) error {
	msg := cause.Error()
	t.SyncAttempts++
	t.LastError = &msg
	_, err := q.store.Put(ctx, store.OfflineTransactions, t)
	return err
}
