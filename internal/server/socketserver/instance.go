package socketserver

import (
	"context"
	"encoding/json"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
)

// handleEnter resolves the requested instance, enforces capacity, and
// announces the new player to the current occupants.
func (s *Server) handleEnter(ctx context.Context, conn *Connection, msg *Message) {
	user := conn.User()
	if user == nil {
		conn.SendError(domain.ErrUserNotLogged, msg.State)
		return
	}
	var payload enterInstancePayload
	if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &payload) != nil || payload.Instance == "" {
		conn.SendError(domain.ErrInstanceInvalidInput, msg.State)
		return
	}

	search := service.SearchIdentifier(domain.ParseIdentifier(payload.Instance))
	instance, err := s.instances.Resolve(ctx, search, service.ActorFor(user))
	if err != nil {
		conn.SendError(asErrorMessage(err), msg.State)
		return
	}
	if !instance.Internal {
		// Foreign instances are joined through their own server's
		// socket, reached with an integrity grant.
		conn.SendError(domain.ErrObjectNotInternal.WithDetails(instance.ID), msg.State)
		return
	}
	if _, already := conn.PlayerInInstance(instance.ID); already && !user.IsBot() {
		conn.SendError(domain.ErrInstanceInvalidInput.WithDetails("already present"), msg.State)
		return
	}

	player := domain.NewPlayer(instance, conn.ID, user, s.registry.Address())
	if payload.Display != "" {
		player.Display = payload.Display
	}
	if !s.players.AddIfCapacity(player, instance.EffectiveCapacity()) {
		conn.SendError(domain.ErrInstanceIsFull.WithDetails(instance.ID), msg.State)
		return
	}
	conn.addPlayer(player)

	// Join the group before announcing so the new player misses no
	// traffic that follows its own join broadcast.
	s.groups.Add(instance.ID, conn)
	s.groups.Broadcast(instance.ID, CommandPlayerJoin, viewPlayer(player), conn.ID)

	occupants := s.players.InInstance(instance.ID)
	views := make([]PlayerView, 0, len(occupants))
	for _, p := range occupants {
		views = append(views, viewPlayer(p))
	}
	_ = conn.SendCommand(CommandEnterInstance, enteredPayload{
		Player:  viewPlayer(player),
		Players: views,
	}, msg.State)

	if s.metrics != nil {
		s.metrics.PlayersConnected.Inc()
	}
	s.logger.Info("player entered",
		"player_id", player.ID, "instance_id", instance.ID, "user", player.UserIDs)
}

// handleQuit removes one of the connection's players on request.
func (s *Server) handleQuit(conn *Connection, msg *Message) {
	var payload quitInstancePayload
	if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &payload) != nil {
		conn.SendError(domain.ErrInstanceInvalidInput, msg.State)
		return
	}
	player, ok := conn.Player(payload.Player)
	if !ok {
		conn.SendError(domain.ErrPlayerNotFound.WithDetails(payload.Player), msg.State)
		return
	}
	s.removePlayer(conn, player, domain.QuitClosed)
	_ = conn.SendCommand(CommandQuitInstance, quitPayload{
		Player: player.ID,
		Reason: int(domain.QuitClosed),
	}, msg.State)
}

// removePlayer unregisters a player and tells the remaining occupants
// why it left. The leaving connection drops out of the group before
// the broadcast when this was its last player there.
func (s *Server) removePlayer(conn *Connection, player *domain.Player, reason domain.QuitReason) {
	s.players.Remove(player.ID)
	conn.removePlayer(player.ID)
	if _, still := conn.PlayerInInstance(player.InstanceID); !still {
		s.groups.Remove(player.InstanceID, conn.ID)
	}
	s.groups.Broadcast(player.InstanceID, CommandPlayerQuit, quitPayload{
		Player: player.ID,
		Reason: int(reason),
	}, conn.ID)

	if s.metrics != nil {
		s.metrics.PlayersConnected.Dec()
	}
	s.logger.Info("player left",
		"player_id", player.ID, "instance_id", player.InstanceID, "reason", reason.String())
}
