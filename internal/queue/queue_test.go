package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/store"
)

// --- Helpers -------------------------------------------------------------

func newTestQueue(t *testing.T, online bool) (*Queue, *connectivity.Monitor) {
	t.Helper()

	st, err := store.OpenTerminal(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := connectivity.NewMonitor(online)
	return New(st, m, 0), m
}

func salePayload(total string) model.SalePayload {
	return model.SalePayload{
		Items: []model.SaleItem{
			{ProductID: "p1", Quantity: 2, Price: "50.00", Total: "100.00"},
		},
		Subtotal:      total,
		Tax:           "0.00",
		Discount:      "0.00",
		Total:         total,
		PaymentMethod: "cash",
		CashierID:     "cashier-1",
	}
}

// --- Tests ---------------------------------------------------------------

// This test validates:
// - a valid enqueue returns a unique local id
// - the transaction is immediately visible in ListUnsynced with
//   synced=false, zero attempts and a client reference
func TestQueue_Enqueue_OK(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	id1, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, salePayload("200.00"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	pending, err := q.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.False(t, pending[0].Synced)
	require.Zero(t, pending[0].SyncAttempts)
	require.NotEmpty(t, pending[0].ClientRef)
	require.Nil(t, pending[0].LastError)
}

// This test validates:
// - a payload without line items is rejected synchronously
// - a non-positive quantity is rejected
// - nothing is persisted on rejection
func TestQueue_Enqueue_Invalid(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	empty := salePayload("100.00")
	empty.Items = nil
	_, err := q.Enqueue(ctx, empty)
	require.ErrorIs(t, err, ErrInvalidPayload)

	badQty := salePayload("100.00")
	badQty.Items[0].Quantity = 0
	_, err = q.Enqueue(ctx, badQty)
	require.ErrorIs(t, err, ErrInvalidPayload)

	noProduct := salePayload("100.00")
	noProduct.Items[0].ProductID = ""
	_, err = q.Enqueue(ctx, noProduct)
	require.ErrorIs(t, err, ErrInvalidPayload)

	st, err2 := q.SyncStatus(ctx)
	require.NoError(t, err2)
	require.Zero(t, st.Total)
}

// This test validates:
// - ListUnsynced orders by queue time, oldest first
func TestQueue_ListUnsynced_Ordering(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(2 * time.Hour), base, base.Add(time.Hour)}
	totals := []string{"300.00", "100.00", "200.00"}

	for i := range times {
		tt := times[i]
		q.now = func() time.Time { return tt }
		_, err := q.Enqueue(ctx, salePayload(totals[i]))
		require.NoError(t, err)
	}

	pending, err := q.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, "100.00", pending[0].Payload.Total)
	require.Equal(t, "200.00", pending[1].Payload.Total)
	require.Equal(t, "300.00", pending[2].Payload.Total)
}

// This test validates:
// - SyncStatus counts total, synced, unsynced
// - failed means unsynced with attempts beyond the retry threshold
func TestQueue_SyncStatus(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, salePayload("200.00"))
	require.NoError(t, err)

	pending, err := q.ListUnsynced(ctx)
	require.NoError(t, err)

	require.NoError(t, q.markSynced(ctx, pending[0]))

	// four failures: attempts 4 > threshold 3
	failing := pending[1]
	for i := 0; i < 4; i++ {
		require.NoError(t, q.markFailed(ctx, failing, context.DeadlineExceeded))
		failing.SyncAttempts++
	}

	st, err := q.SyncStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, Status{Total: 2, Synced: 1, Unsynced: 1, Failed: 1}, st)
}

// This test validates:
// - ClearSynced removes only transactions the backend accepted
func TestQueue_ClearSynced(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, salePayload("200.00"))
	require.NoError(t, err)

	pending, err := q.ListUnsynced(ctx)
	require.NoError(t, err)
	require.NoError(t, q.markSynced(ctx, pending[0]))

	removed, err := q.ClearSynced(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	st, err := q.SyncStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, Status{Total: 1, Synced: 0, Unsynced: 1, Failed: 0}, st)
}

// This test validates:
// - enqueueing while online kicks the async sync trigger
// - enqueueing while offline does not
func TestQueue_Enqueue_TriggersSyncWhenOnline(t *testing.T) {
	q, _ := newTestQueue(t, true)
	ctx := context.Background()

	kicked := make(chan struct{}, 1)
	q.SetSyncTrigger(func() { kicked <- struct{}{} })

	_, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)

	select {
	case <-kicked:
	case <-time.After(2 * time.Second):
		t.Fatal("sync trigger was not kicked")
	}

	offline, _ := newTestQueue(t, false)
	offline.SetSyncTrigger(func() { t.Error("trigger must not fire while offline") })
	_, err = offline.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
}
