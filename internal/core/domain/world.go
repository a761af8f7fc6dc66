package domain

import "time"

// World is a space template. Instances are live sessions of a world.
type World struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerIDs    string    `json:"owner"`
	Tags        []string  `json:"tags"`
	Version     string    `json:"version,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Server      string    `json:"-"`
	Internal    bool      `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Identifier returns the world's federated identifier, carrying the
// version as qualifier when set.
func (w *World) Identifier() Identifier {
	server := w.Server
	if w.Internal || server == "" {
		server = SelfMarker
	}
	return Identifier{ID: w.ID, Server: server, Qualifier: w.Version}
}
