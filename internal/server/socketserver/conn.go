package socketserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
)

// writeWait bounds a single frame write.
const writeWait = 10 * time.Second

// transport is the minimal connection surface the session layer
// needs. gorilla/websocket satisfies it; tests substitute a fake.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the
// package into the transport seam.
const textMessage = 1

// Connection is one live socket session. A connection authenticates
// at most one user and may hold players in several instances, bot
// accounts holding several at once.
type Connection struct {
	ID string

	transport transport
	writeMu   sync.Mutex

	mu      sync.RWMutex
	user    *domain.User
	players map[string]*domain.Player
}

func newConnection(id string, t transport) *Connection {
	return &Connection{
		ID:        id,
		transport: t,
		players:   make(map[string]*domain.Player),
	}
}

// User returns the authenticated user, nil before authentication.
func (c *Connection) User() *domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Connection) setUser(user *domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// Player returns an owned player by id.
func (c *Connection) Player(id string) (*domain.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[id]
	return p, ok
}

// PlayerInInstance returns the connection's player inside an
// instance, if any.
func (c *Connection) PlayerInInstance(instanceID string) (*domain.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.players {
		if p.InstanceID == instanceID {
			return p, true
		}
	}
	return nil, false
}

// Players returns a snapshot of all owned players.
func (c *Connection) Players() []*domain.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Player, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, p)
	}
	return out
}

func (c *Connection) addPlayer(p *domain.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[p.ID] = p
}

func (c *Connection) removePlayer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, id)
}

// Send serializes and writes one envelope. Writes are serialized per
// connection.
func (c *Connection) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.transport.SetWriteDeadline(time.Now().Add(writeWait))
	return c.transport.WriteMessage(textMessage, data)
}

// SendCommand builds and sends an envelope in one step.
func (c *Connection) SendCommand(command string, data any, state string) error {
	msg, err := newMessage(command, data, state)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendError reports a failed command back to the client.
func (c *Connection) SendError(errMsg *domain.ErrorMessage, state string) {
	_ = c.SendCommand(CommandError, errMsg, state)
}

// Close closes the underlying transport.
func (c *Connection) Close() error {
	return c.transport.Close()
}
