// Package realtime subscribes to the backend's push channel for table-level
// change notifications. Delivery is best effort: whatever the channel
// guarantees, no more. There is no automatic reconnect; the composition
// root owns the channel's lifecycle.
package realtime

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
)

// Topics published by the backend.
const (
	TopicProducts       = "products"
	TopicCategories     = "categories"
	TopicTransactions   = "transactions"
	TopicStockMovements = "stock_movements"
)

type Callback func(ev model.ChangeEvent)

type Bridge struct {
	conn *websocket.Conn

	mu     sync.Mutex
	subs   map[string]map[int]Callback
	nextID int
	closed bool

	onDown func()
	once   sync.Once
}

// Dial connects to the realtime channel and starts dispatching. onDown, if
// non-nil, fires once when the channel drops or is closed.
func Dial(ctx context.Context, url string, onDown func()) (*Bridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	b := newBridge(conn, onDown)
	go b.readLoop()
	return b, nil
}

func newBridge(conn *websocket.Conn, onDown func()) *Bridge {
	return &Bridge{
		conn:   conn,
		subs:   make(map[string]map[int]Callback),
		onDown: onDown,
	}
}

func (b *Bridge) readLoop() {
	for {
		var ev model.ChangeEvent
		if err := b.conn.ReadJSON(&ev); err != nil {
			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				obs.Logger.Warn("realtime channel dropped", "error", err)
			}
			b.down()
			return
		}
		b.dispatch(ev)
	}
}

func (b *Bridge) dispatch(ev model.ChangeEvent) {
	b.mu.Lock()
	cbs := make([]Callback, 0, len(b.subs[ev.Topic]))
	for _, cb := range b.subs[ev.Topic] {
		cbs = append(cbs, cb)
	}
	b.mu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// Subscribe registers a callback for one topic and returns its cancel func.
// Subscriptions to the same topic are independent, not deduplicated; cancel
// is idempotent.
func (b *Bridge) Subscribe(topic string, cb Callback) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Callback)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = cb

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m := b.subs[topic]; m != nil {
			delete(m, id)
		}
	}
}

func (b *Bridge) down() {
	b.once.Do(func() {
		if b.onDown != nil {
			b.onDown()
		}
	})
}

// Close tears the socket down and drops every subscription.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subs = make(map[string]map[int]Callback)
	b.mu.Unlock()

	err := b.conn.Close()
	b.down()
	return err
}
