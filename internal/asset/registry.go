package asset

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe set of known tokens keyed by address.
type Registry struct {
	byAddr map[common.Address]*Asset
	mu     sync.RWMutex
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{byAddr: make(map[common.Address]*Asset)}
}

// Register adds or replaces an asset.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		return
	}
	r.mu.Lock()
	r.byAddr[a.Address()] = a
	r.mu.Unlock()
}

// Get retrieves an asset by contract address.
func (r *Registry) Get(addr common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAddr[addr]
	return a, ok
}

// All returns all registered assets ordered by address.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	result := make([]*Asset, 0, len(r.byAddr))
	for _, a := range r.byAddr {
		result = append(result, a)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address().Cmp(result[j].Address()) < 0
	})
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}
