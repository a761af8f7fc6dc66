package domain

import "time"

// DefaultInstanceCapacity applies when an instance was created
// without an explicit capacity.
const DefaultInstanceCapacity = 16

// Instance is a live, joinable session of a world. Its occupancy is
// not stored: players are ephemeral cache records bound to live
// connections, and the capacity invariant is enforced at join time.
type Instance struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	OwnerIDs    string    `json:"owner"`
	WorldIDs    string    `json:"world"`
	Capacity    int       `json:"capacity"`
	Tags        []string  `json:"tags"`
	Server      string    `json:"-"`
	Internal    bool      `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// EffectiveCapacity returns the instance capacity, defaulted when the
// record carries none.
func (i *Instance) EffectiveCapacity() int {
	if i.Capacity > 0 {
		return i.Capacity
	}
	return DefaultInstanceCapacity
}

// Identifier returns the instance's federated identifier.
func (i *Instance) Identifier() Identifier {
	server := i.Server
	if i.Internal || server == "" {
		server = SelfMarker
	}
	return Identifier{ID: i.ID, Server: server}
}
