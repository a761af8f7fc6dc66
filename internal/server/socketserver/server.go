package socketserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
	"github.com/hactazia/reileta/pkg/token"
)

// Server owns the websocket endpoint and every live connection.
type Server struct {
	auth      *service.AuthService
	instances *service.InstanceService
	registry  *federation.Registry
	groups    *Groups
	players   *PlayerRegistry
	metrics   *metric.Registry
	logger    logger.Logger
	upgrader  websocket.Upgrader
}

// New creates the socket server.
func New(auth *service.AuthService, instances *service.InstanceService, registry *federation.Registry, metrics *metric.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		auth:      auth,
		instances: instances,
		registry:  registry,
		groups:    NewGroups(metrics),
		players:   NewPlayerRegistry(),
		metrics:   metrics,
		logger:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients connect from arbitrary origins; identity comes
			// from authentication, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Players exposes the live player registry.
func (s *Server) Players() *PlayerRegistry {
	return s.players
}

// ServeHTTP upgrades the request and runs the session until the
// socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id, err := token.GenerateHex(8)
	if err != nil {
		_ = ws.Close()
		return
	}
	conn := newConnection("c_"+id, ws)
	s.logger.Debug("socket connected", "conn_id", conn.ID)
	s.readLoop(r.Context(), conn)
}

// readLoop dispatches frames until the socket drops, then quits every
// player the connection still owns.
func (s *Server) readLoop(ctx context.Context, conn *Connection) {
	defer s.disconnect(conn)
	for {
		_, data, err := conn.transport.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.SendError(domain.ErrUserInvalidInput.WithDetails("invalid envelope"), "")
			continue
		}
		s.dispatch(ctx, conn, &msg)
	}
}

// Dispatch routes one envelope. Unknown outer commands are treated as
// instance ids carrying a nested envelope.
func (s *Server) dispatch(ctx context.Context, conn *Connection, msg *Message) {
	switch msg.Command {
	case CommandPing:
		_ = conn.SendCommand(CommandPing, pingPayload{Time: time.Now().UnixMilli()}, msg.State)
	case CommandAuthenticate:
		s.handleAuthenticate(ctx, conn, msg)
	case CommandEnterInstance:
		s.handleEnter(ctx, conn, msg)
	case CommandQuitInstance:
		s.handleQuit(conn, msg)
	default:
		s.dispatchInstance(conn, msg)
	}
}

// dispatchInstance unwraps an instance-scoped envelope.
func (s *Server) dispatchInstance(conn *Connection, msg *Message) {
	var inner Message
	if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &inner) != nil {
		conn.SendError(domain.ErrRequestNotFound.WithDetails(msg.Command), msg.State)
		return
	}
	switch inner.Command {
	case CommandTransform:
		s.handleTransform(conn, msg.Command, &inner, msg.State)
	default:
		conn.SendError(domain.ErrRequestNotFound.WithDetails(inner.Command), msg.State)
	}
}

// handleAuthenticate binds a user to the connection. Exactly one of
// the session token and the integrity token must be present.
func (s *Server) handleAuthenticate(ctx context.Context, conn *Connection, msg *Message) {
	var payload authenticatePayload
	if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &payload) != nil {
		conn.SendError(domain.ErrAuthInvalidInput, msg.State)
		return
	}
	user, err := s.auth.Authenticate(ctx, payload.Token, payload.Integrity)
	if err != nil {
		conn.SendError(asErrorMessage(err), msg.State)
		return
	}
	conn.setUser(user)
	s.logger.Info("socket authenticated", "conn_id", conn.ID, "user", user.ID)
	_ = conn.SendCommand(CommandAuthenticate, authenticatedPayload{
		User:   user.Identifier().StringFor(s.registry.Address()),
		Server: s.registry.Address(),
	}, msg.State)
}

// disconnect quits every player the connection owns with the
// disconnected reason and closes the socket.
func (s *Server) disconnect(conn *Connection) {
	for _, p := range conn.Players() {
		s.removePlayer(conn, p, domain.QuitDisconnected)
	}
	_ = conn.Close()
	s.logger.Debug("socket closed", "conn_id", conn.ID)
}

func asErrorMessage(err error) *domain.ErrorMessage {
	if em, ok := domain.AsErrorMessage(err); ok {
		return em
	}
	return domain.ErrInternalError
}
