// Package socketserver implements the realtime layer: websocket
// sessions, instance presence, and quantized transform fanout.
//
// Every frame is a command envelope. Instance-scoped traffic nests a
// second envelope whose outer command is the instance id, so one
// connection can hold players in several instances at once.
package socketserver

import (
	"encoding/json"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
)

// Message is the socket envelope. State is an opaque client
// correlation value echoed back on replies.
type Message struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
	State   string          `json:"state,omitempty"`
}

// Connection-level commands.
const (
	CommandPing          = "ping"
	CommandAuthenticate  = "authenticate"
	CommandEnterInstance = "enter_instance"
	CommandQuitInstance  = "quit_instance"
	CommandError         = "error"
)

// Instance-scoped commands, nested under an instance id envelope.
const (
	CommandTransform  = "transform"
	CommandPlayerJoin = "player_join"
	CommandPlayerQuit = "player_quit"
)

// newMessage builds an envelope with a JSON payload.
func newMessage(command string, data any, state string) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{Command: command, Data: raw, State: state}, nil
}

type authenticatePayload struct {
	Token     string `json:"token,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

type authenticatedPayload struct {
	User   string `json:"user"`
	Server string `json:"server"`
}

type pingPayload struct {
	Time int64 `json:"time"`
}

type enterInstancePayload struct {
	Instance string `json:"instance"`
	Display  string `json:"display,omitempty"`
}

type quitInstancePayload struct {
	Player string `json:"player"`
}

// PlayerView is the wire form of a player.
type PlayerView struct {
	ID       string    `json:"id"`
	Instance string    `json:"instance"`
	User     string    `json:"user"`
	Display  string    `json:"display"`
	Role     string    `json:"role"`
	IsBot    bool      `json:"is_bot"`
	JoinedAt time.Time `json:"joined_at"`
}

func viewPlayer(p *domain.Player) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Instance: p.InstanceID,
		User:     p.UserIDs,
		Display:  p.Display,
		Role:     string(p.Role),
		IsBot:    p.IsBot,
		JoinedAt: p.JoinedAt,
	}
}

type enteredPayload struct {
	Player  PlayerView   `json:"player"`
	Players []PlayerView `json:"players"`
}

type quitPayload struct {
	Player string `json:"player"`
	Reason int    `json:"reason"`
}

type transformPayload struct {
	// Player addresses one of the connection's own players. Empty
	// means the connection's primary player in the instance.
	Player          string             `json:"player,omitempty"`
	Path            string             `json:"path"`
	Position        *domain.Vector3    `json:"position,omitempty"`
	Rotation        *domain.Quaternion `json:"rotation,omitempty"`
	Scale           *domain.Vector3    `json:"scale,omitempty"`
	Velocity        *domain.Vector3    `json:"velocity,omitempty"`
	AngularVelocity *domain.Vector3    `json:"angular_velocity,omitempty"`
	At              int64              `json:"at"`
}

// transform assembles the payload into a domain transform, filling
// omitted components from the previous known pose.
func (p *transformPayload) transform(prev domain.Transform) domain.Transform {
	t := prev
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.Rotation != nil {
		t.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		t.Scale = *p.Scale
	}
	if p.Velocity != nil {
		t.Velocity = *p.Velocity
	}
	if p.AngularVelocity != nil {
		t.AngularVelocity = *p.AngularVelocity
	}
	t.At = p.At
	return t
}

// transformBroadcast is the fanout form of an applied transform.
type transformBroadcast struct {
	Player          string            `json:"player"`
	Path            string            `json:"path"`
	Position        domain.Vector3    `json:"position"`
	Rotation        domain.Quaternion `json:"rotation"`
	Scale           domain.Vector3    `json:"scale"`
	Velocity        domain.Vector3    `json:"velocity"`
	AngularVelocity domain.Vector3    `json:"angular_velocity"`
	At              int64             `json:"at"`
}

func broadcastTransform(playerID, path string, t domain.Transform) transformBroadcast {
	return transformBroadcast{
		Player:          playerID,
		Path:            path,
		Position:        t.Position,
		Rotation:        t.Rotation,
		Scale:           t.Scale,
		Velocity:        t.Velocity,
		AngularVelocity: t.AngularVelocity,
		At:              t.At,
	}
}
