package connectivity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// This test validates:
// - the monitor reflects its initial state and flips on Set
func TestMonitor_Set(t *testing.T) {
	m := NewMonitor(true)
	require.True(t, m.Online())

	m.Set(false)
	require.False(t, m.Online())

	m.Set(true)
	require.True(t, m.Online())
}

// This test validates:
// - subscribers fire on transitions only, not on repeated identical signals
func TestMonitor_Subscribe_TransitionsOnly(t *testing.T) {
	m := NewMonitor(false)

	var seen []bool
	cancel := m.Subscribe(func(online bool) { seen = append(seen, online) })
	defer cancel()

	m.Set(false) // no transition
	m.Set(true)
	m.Set(true) // no transition
	m.Set(false)

	require.Equal(t, []bool{true, false}, seen)
}

// This test validates:
// - unsubscribing stops delivery and is idempotent
// - other subscribers are unaffected
func TestMonitor_Unsubscribe(t *testing.T) {
	m := NewMonitor(false)

	first := 0
	second := 0
	cancelFirst := m.Subscribe(func(bool) { first++ })
	cancelSecond := m.Subscribe(func(bool) { second++ })
	defer cancelSecond()

	m.Set(true)
	require.Equal(t, 1, first)
	require.Equal(t, 1, second)

	cancelFirst()
	cancelFirst() // idempotent

	m.Set(false)
	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
}
