package combat

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process StateStore.
type MemoryStore struct {
	mu          sync.RWMutex
	territories map[string]*Territory
	units       map[string]*UnitState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		territories: make(map[string]*Territory),
		units:       make(map[string]*UnitState),
	}
}

// PutTerritory adds or replaces a territory.
func (s *MemoryStore) PutTerritory(t Territory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	cp.Neighbors = append([]string(nil), t.Neighbors...)
	s.territories[t.Name] = &cp
}

// PutUnit adds or replaces a unit.
func (s *MemoryStore) PutUnit(u UnitState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.units[u.ID] = &cp
}

func (s *MemoryStore) Territory(_ context.Context, name string) (*Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.territories[name]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Neighbors = append([]string(nil), t.Neighbors...)
	return &cp, nil
}

func (s *MemoryStore) Units(_ context.Context, territory string) ([]UnitState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UnitState
	for _, u := range s.units {
		if u.Territory == territory {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Apply commits the whole change set or, on error, none of it.
func (s *MemoryStore) Apply(_ context.Context, cs ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	territories := make(map[string]*Territory, len(s.territories))
	for k, v := range s.territories {
		cp := *v
		territories[k] = &cp
	}
	units := make(map[string]*UnitState, len(s.units))
	for k, v := range s.units {
		cp := *v
		units[k] = &cp
	}
	if err := ApplyChanges(territories, units, cs); err != nil {
		return err
	}
	s.territories, s.units = territories, units
	return nil
}

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu      sync.Mutex
	order   []string
	sites   map[string]string
	depends map[string][]string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sites:   make(map[string]string),
		depends: make(map[string][]string),
	}
}

func (r *MemoryRegistry) Register(_ context.Context, battleID, site string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[battleID]; !ok {
		r.order = append(r.order, battleID)
	}
	r.sites[battleID] = site
	return nil
}

func (r *MemoryRegistry) AddDependency(_ context.Context, battleID, blockingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[battleID]; !ok {
		return fmt.Errorf("battle %s is not registered", battleID)
	}
	for _, d := range r.depends[battleID] {
		if d == blockingID {
			return nil
		}
	}
	r.depends[battleID] = append(r.depends[battleID], blockingID)
	return nil
}

// Dependencies returns the still-pending battles that block battleID.
func (r *MemoryRegistry) Dependencies(_ context.Context, battleID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.depends[battleID] {
		if _, ok := r.sites[d]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) Deregister(_ context.Context, battleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sites, battleID)
	delete(r.depends, battleID)
	for i, id := range r.order {
		if id == battleID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Pending returns registered battles in registration order.
func (r *MemoryRegistry) Pending(context.Context) ([]PendingBattle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingBattle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, PendingBattle{ID: id, Site: r.sites[id]})
	}
	return out, nil
}
