package socketserver

import (
	"encoding/json"

	"github.com/hactazia/reileta/internal/core/domain"
)

// handleTransform applies a pose update to one of the connection's
// players and fans the accepted form out to the other occupants. The
// sender never receives its own update back; stale and no-op updates
// are dropped silently.
func (s *Server) handleTransform(conn *Connection, instanceID string, inner *Message, state string) {
	if conn.User() == nil {
		conn.SendError(domain.ErrUserNotLogged, state)
		return
	}
	var payload transformPayload
	if len(inner.Data) == 0 || json.Unmarshal(inner.Data, &payload) != nil || payload.Path == "" {
		conn.SendError(domain.ErrUserInvalidInput.WithDetails("invalid transform"), state)
		return
	}

	var player *domain.Player
	if payload.Player != "" {
		// Addressed updates name an explicit player: one of the
		// connection's own bodies, or any other occupant of the same
		// instance.
		p, ok := conn.Player(payload.Player)
		if !ok {
			p, ok = s.players.Get(payload.Player)
		}
		if !ok {
			conn.SendError(domain.ErrPlayerNotFound.WithDetails(payload.Player), state)
			return
		}
		if p.InstanceID != instanceID {
			conn.SendError(domain.ErrNotInInstance.WithDetails(instanceID), state)
			return
		}
		player = p
	} else {
		p, ok := conn.PlayerInInstance(instanceID)
		if !ok {
			conn.SendError(domain.ErrNotInInstance.WithDetails(instanceID), state)
			return
		}
		player = p
	}

	prev, known := player.TransformAt(payload.Path)
	if !known {
		prev = domain.DefaultTransform()
	}
	applied, result := player.ApplyTransform(payload.Path, payload.transform(prev))
	if result != domain.TransformApplied {
		return
	}
	s.groups.Broadcast(instanceID, CommandTransform,
		broadcastTransform(player.ID, payload.Path, applied), conn.ID)
}
