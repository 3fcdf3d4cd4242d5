package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// This test validates:
// - a kick arriving while a drain is running collapses into a rerun instead
//   of being dropped, so a sale enqueued mid-drain still syncs
func TestKicker_KickDuringDrainReruns(t *testing.T) {
	svc := newMockRemote()
	svc.entered = make(chan struct{}, 4)
	svc.gate = make(chan struct{})

	q, e := newTestEngine(t, true, svc, time.Minute)
	k := NewKicker(e)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)

	k.Kick()
	select {
	case <-svc.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first drain never reached the remote")
	}

	// a second sale lands while the drain is mid-flight
	_, err = q.Enqueue(ctx, salePayload("200.00"))
	require.NoError(t, err)
	k.Kick()

	close(svc.gate)

	require.Eventually(t, func() bool {
		st, err := q.SyncStatus(context.Background())
		return err == nil && st.Synced == 2
	}, 5*time.Second, 10*time.Millisecond)
}

// This test validates:
// - a kick refused because another trigger holds the engine retries once the
//   engine frees up, instead of silently dropping the sale
func TestKicker_RetriesWhenEngineBusy(t *testing.T) {
	svc := newMockRemote()
	svc.entered = make(chan struct{}, 4)
	svc.gate = make(chan struct{})

	q, e := newTestEngine(t, true, svc, time.Minute)
	k := NewKicker(e)
	k.retryDelay = 10 * time.Millisecond
	ctx := context.Background()

	_, err := q.Enqueue(ctx, salePayload("100.00"))
	require.NoError(t, err)

	// a manual trigger holds the engine
	manualDone := make(chan struct{})
	go func() {
		defer close(manualDone)
		_, _ = e.Drain(context.Background())
	}()
	select {
	case <-svc.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("manual drain never reached the remote")
	}

	_, err = q.Enqueue(ctx, salePayload("200.00"))
	require.NoError(t, err)
	k.Kick()

	close(svc.gate)
	<-manualDone

	require.Eventually(t, func() bool {
		st, err := q.SyncStatus(context.Background())
		return err == nil && st.Synced == 2
	}, 5*time.Second, 10*time.Millisecond)
}
