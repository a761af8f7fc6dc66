package socketserver

import (
	"sync"

	"github.com/hactazia/reileta/internal/core/domain"
)

// PlayerRegistry indexes live players by id and by instance. Players
// are ephemeral: they exist only while their owning connection is
// open.
type PlayerRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Player
	byInst map[string]map[string]*domain.Player
}

// NewPlayerRegistry creates an empty registry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		byID:   make(map[string]*domain.Player),
		byInst: make(map[string]map[string]*domain.Player),
	}
}

// Get returns a player by id.
func (r *PlayerRegistry) Get(id string) (*domain.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// InInstance returns a snapshot of an instance's players.
func (r *PlayerRegistry) InInstance(instanceID string) []*domain.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group := r.byInst[instanceID]
	out := make([]*domain.Player, 0, len(group))
	for _, p := range group {
		out = append(out, p)
	}
	return out
}

// CountInInstance returns the current occupancy of an instance.
func (r *PlayerRegistry) CountInInstance(instanceID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byInst[instanceID])
}

// AddIfCapacity registers a player unless the instance is already at
// capacity. The occupancy check and the insert are one atomic step so
// concurrent joins cannot overshoot the limit.
func (r *PlayerRegistry) AddIfCapacity(p *domain.Player, capacity int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.byInst[p.InstanceID]
	if !ok {
		group = make(map[string]*domain.Player)
		r.byInst[p.InstanceID] = group
	}
	if capacity > 0 && len(group) >= capacity {
		if len(group) == 0 {
			delete(r.byInst, p.InstanceID)
		}
		return false
	}
	group[p.ID] = p
	r.byID[p.ID] = p
	return true
}

// Remove unregisters a player.
func (r *PlayerRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if group, ok := r.byInst[p.InstanceID]; ok {
		delete(group, id)
		if len(group) == 0 {
			delete(r.byInst, p.InstanceID)
		}
	}
}

// Total returns the number of live players.
func (r *PlayerRegistry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
