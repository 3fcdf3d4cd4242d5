// Package connectivity tracks last-known network reachability. The monitor
// is purely reactive: it reflects whatever the platform signal reports and
// never probes on its own, so it can be wrong when the signal is unreliable.
package connectivity

import (
	"sync"

	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
)

type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(online bool)
	nextID int
}

func NewMonitor(initialOnline bool) *Monitor {
	return &Monitor{
		online: initialOnline,
		subs:   make(map[int]func(online bool)),
	}
}

// Online is the synchronous read consumers use at decision points.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set ingests a platform reachability signal. Subscribers are notified only
// on an actual transition, outside the lock.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if online {
		obs.Logger.Info("network back online")
	} else {
		obs.Logger.Warn("network gone offline")
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a transition callback and returns its cancel func.
// Cancel is idempotent.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
