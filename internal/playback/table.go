// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"sort"
	"sync"
)

// Table maps client keys to their current State. At most one State exists
// per client.
type Table struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{states: make(map[string]*State)}
}

// Get returns the client's current state.
func (t *Table) Get(client string) (*State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[client]
	return s, ok
}

// Replace installs s as the client's state. A previous state is stopped and
// returned.
func (t *Table) Replace(client string, s *State) *State {
	t.mu.Lock()
	prev := t.states[client]
	t.states[client] = s
	t.mu.Unlock()

	if prev != nil && prev != s {
		prev.Stop()
	}
	return prev
}

// Remove evicts the client's state, stopping it.
func (t *Table) Remove(client string) {
	t.mu.Lock()
	prev := t.states[client]
	delete(t.states, client)
	t.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// RemoveIf evicts the client's state only while it is still s.
func (t *Table) RemoveIf(client string, s *State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[client] != s {
		return false
	}
	delete(t.states, client)
	s.Stop()
	return true
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// Snapshots returns a copy of every state keyed by client, for reporting.
func (t *Table) Snapshots() map[string]Snapshot {
	t.mu.RLock()
	keys := make([]string, 0, len(t.states))
	states := make([]*State, 0, len(t.states))
	for k, s := range t.states {
		keys = append(keys, k)
		states = append(states, s)
	}
	t.mu.RUnlock()

	out := make(map[string]Snapshot, len(keys))
	for i, k := range keys {
		out[k] = states[i].Snapshot()
	}
	return out
}

// Clients lists the keys currently in the table in sorted order.
func (t *Table) Clients() []string {
	t.mu.RLock()
	keys := make([]string, 0, len(t.states))
	for k := range t.states {
		keys = append(keys, k)
	}
	t.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
