// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"sync"

	"github.com/google/uuid"
)

// registry hands out one id per (root, key) and never forgets it.
type registry struct {
	mu  sync.Mutex
	ids map[registryKey]string
}

type registryKey struct {
	root string
	key  string
}

func newRegistry() *registry {
	return &registry{ids: make(map[registryKey]string)}
}

func (r *registry) id(root, key string) string {
	k := registryKey{root: root, key: key}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[k]; ok {
		return id
	}
	id := uuid.NewString()
	r.ids[k] = id
	return id
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
