package vend

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry holds the live machines of the station keyed by object ID.
// Lookups come from the gateway on every player message, so reads go
// through sync.Map; the count is cached for O(1) access.
type Registry struct {
	machines sync.Map // map[string]*Machine
	count    atomic.Int32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a machine. Re-registering the same ID replaces the
// previous instance without touching the count.
func (r *Registry) Register(m *Machine) {
	if m == nil {
		return
	}
	if _, loaded := r.machines.Swap(m.ID(), m); !loaded {
		r.count.Add(1)
	}
}

// Get returns the machine with the given ID, or nil.
func (r *Registry) Get(id string) *Machine {
	v, ok := r.machines.Load(id)
	if !ok {
		return nil
	}
	return v.(*Machine)
}

// Remove deletes a machine from the registry.
func (r *Registry) Remove(id string) {
	if _, loaded := r.machines.LoadAndDelete(id); loaded {
		r.count.Add(-1)
	}
}

// All returns every registered machine sorted by ID.
func (r *Registry) All() []*Machine {
	out := make([]*Machine, 0, r.count.Load())
	r.machines.Range(func(_, v any) bool {
		out = append(out, v.(*Machine))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of registered machines.
func (r *Registry) Count() int {
	return int(r.count.Load())
}
