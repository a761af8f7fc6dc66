package domain

import (
	"sync"
	"time"
)

// PlayerRole is a player's moderation role inside one instance.
type PlayerRole string

const (
	RoleAdmin     PlayerRole = "admin"
	RoleMaster    PlayerRole = "master"
	RoleModerator PlayerRole = "moderator"
	RoleNormal    PlayerRole = "normal"
)

// QuitReason tags a "left" broadcast with why the player left.
type QuitReason int

const (
	QuitKicked       QuitReason = 0
	QuitBanned       QuitReason = 2
	QuitClosed       QuitReason = 3
	QuitDisconnected QuitReason = 4
)

func (r QuitReason) String() string {
	switch r {
	case QuitKicked:
		return "kicked"
	case QuitBanned:
		return "banned"
	case QuitClosed:
		return "closed"
	case QuitDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Default body-part paths every player starts with. Sub-paths can be
// addressed dynamically by transform updates.
var defaultTransformPaths = []string{
	"/body",
	"/body/head",
	"/body/left_hand",
	"/body/right_hand",
}

// ApplyResult is the outcome of a transform update.
type ApplyResult int

const (
	// TransformApplied means the update was stored and should be
	// broadcast to the other occupants.
	TransformApplied ApplyResult = iota

	// TransformStale means the update's At was not newer than the last
	// accepted one for that path; the stored transform is unchanged.
	TransformStale

	// TransformUnchanged means the quantized pose is identical to the
	// stored one; the update is dropped even though At advanced.
	TransformUnchanged
)

// Player is a connection's ephemeral membership in one instance. It
// exists only as long as its owning connection is open and is never
// persisted.
type Player struct {
	ID           string    `json:"id"`
	InstanceID   string    `json:"instance"`
	ConnectionID string    `json:"-"`
	UserIDs      string    `json:"user"`
	Display      string    `json:"display"`
	Role         PlayerRole `json:"role"`
	IsBot        bool      `json:"is_bot,omitempty"`
	JoinedAt     time.Time `json:"-"`

	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewPlayer binds a resolved user to an instance and a connection.
// The role derives from the user's tags.
func NewPlayer(instance *Instance, connectionID string, user *User, self string) *Player {
	p := &Player{
		ID:           GeneratePlayerID(),
		InstanceID:   instance.ID,
		ConnectionID: connectionID,
		UserIDs:      user.Identifier().StringFor(self),
		Display:      user.DisplayName(),
		Role:         RoleNormal,
		IsBot:        user.IsBot(),
		JoinedAt:     time.Now(),
		transforms:   make(map[string]Transform, len(defaultTransformPaths)),
	}
	if user.IsAdministrator() {
		p.Role = RoleAdmin
	}
	for _, path := range defaultTransformPaths {
		p.transforms[path] = DefaultTransform()
	}
	return p
}

// ApplyTransform quantizes the update and stores it under path if it
// passes the monotonicity and no-op checks. The returned transform is
// the quantized form, valid when the result is TransformApplied.
func (p *Player) ApplyTransform(path string, t Transform) (Transform, ApplyResult) {
	q := t.Quantized()

	p.mu.Lock()
	defer p.mu.Unlock()

	last, known := p.transforms[path]
	if known && q.At <= last.At {
		return last, TransformStale
	}
	if known && q.SamePose(last) {
		// Pose did not move; remember the newer timestamp so later
		// duplicates stay rejected, but skip the broadcast.
		last.At = q.At
		p.transforms[path] = last
		return last, TransformUnchanged
	}
	p.transforms[path] = q
	return q, TransformApplied
}

// TransformAt returns the stored transform for path.
func (p *Player) TransformAt(path string) (Transform, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.transforms[path]
	return t, ok
}

// Transforms returns a copy of all stored transforms.
func (p *Player) Transforms() map[string]Transform {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Transform, len(p.transforms))
	for k, v := range p.transforms {
		out[k] = v
	}
	return out
}
