package socketserver

import (
	"sync"

	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// Groups tracks which connections participate in which instance, and
// fans envelopes out to them. A connection joins a group when its
// first player enters the instance and leaves when its last player
// quits.
type Groups struct {
	mu      sync.RWMutex
	byInst  map[string]map[string]*Connection
	metrics *metric.Registry
}

// NewGroups creates an empty group table.
func NewGroups(metrics *metric.Registry) *Groups {
	return &Groups{
		byInst:  make(map[string]map[string]*Connection),
		metrics: metrics,
	}
}

// Add registers a connection in an instance group.
func (g *Groups) Add(instanceID string, conn *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.byInst[instanceID]
	if !ok {
		group = make(map[string]*Connection)
		g.byInst[instanceID] = group
	}
	group[conn.ID] = conn
}

// Remove drops a connection from an instance group.
func (g *Groups) Remove(instanceID string, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.byInst[instanceID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(g.byInst, instanceID)
	}
}

// Members returns a snapshot of the group's connections.
func (g *Groups) Members(instanceID string) []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	group := g.byInst[instanceID]
	out := make([]*Connection, 0, len(group))
	for _, conn := range group {
		out = append(out, conn)
	}
	return out
}

// Broadcast wraps data in an instance envelope and sends it to every
// group member except the excluded connection. Dead connections are
// skipped; the read loop's exit handles their cleanup.
func (g *Groups) Broadcast(instanceID string, command string, data any, exceptConnID string) {
	inner, err := newMessage(command, data, "")
	if err != nil {
		return
	}
	for _, conn := range g.Members(instanceID) {
		if conn.ID == exceptConnID {
			continue
		}
		_ = conn.SendCommand(instanceID, inner, "")
		if g.metrics != nil {
			g.metrics.Broadcasts.Inc()
		}
	}
}
