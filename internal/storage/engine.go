// Package storage provides the persistent store behind the federated
// resolvers: users, worlds, instances, sessions, discovered servers,
// and integrity records. Two backends exist — badger for production
// and an in-memory store for tests and dev.
package storage

import (
	"context"
	"log/slog"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/pkg/crypto/adaptive"
)

// UserStore persists internal user accounts.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	// GetByUsername matches the secondary unique field used when an
	// import by id misses.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Put(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

// WorldStore persists internal worlds.
type WorldStore interface {
	Get(ctx context.Context, id string) (*domain.World, error)
	Put(ctx context.Context, world *domain.World) error
	Delete(ctx context.Context, id string) error
}

// InstanceStore persists internal instances.
type InstanceStore interface {
	Get(ctx context.Context, id string) (*domain.Instance, error)
	GetByName(ctx context.Context, name string) (*domain.Instance, error)
	Put(ctx context.Context, instance *domain.Instance) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists login sessions. Tokens are stored hashed.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// ServerStore persists discovered peer servers, keyed by their
// self-reported address so repeated discovery through different
// aliases reuses the same record.
type ServerStore interface {
	Get(ctx context.Context, id string) (*domain.ServerRecord, error)
	GetByAddress(ctx context.Context, address string) (*domain.ServerRecord, error)
	Put(ctx context.Context, server *domain.ServerRecord) error
	Delete(ctx context.Context, id string) error
}

// IntegrityStore persists cross-server identity assertions.
type IntegrityStore interface {
	Get(ctx context.Context, id string) (*domain.IntegrityRecord, error)
	GetByToken(ctx context.Context, token string) (*domain.IntegrityRecord, error)
	// GetActiveByUser returns the non-expired record for a federated
	// user id, if one exists.
	GetActiveByUser(ctx context.Context, userIDs string) (*domain.IntegrityRecord, error)
	Put(ctx context.Context, record *domain.IntegrityRecord) error
	Delete(ctx context.Context, id string) error
}

// Store is the persistent store shared by all resolvers.
type Store interface {
	Users() UserStore
	Worlds() WorldStore
	Instances() InstanceStore
	Sessions() SessionStore
	Servers() ServerStore
	Integrity() IntegrityStore
	Close() error
}

// Config configures the store.
type Config struct {
	// Backend selects the implementation: "badger" or "memory".
	Backend string

	// DataDir is the badger data directory.
	DataDir string

	// Cipher seals server challenge secrets at rest. Optional; when
	// nil challenges are stored in the clear.
	Cipher adaptive.Cipher

	Logger *slog.Logger
}

// Open creates a store for the configured backend.
func Open(cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	default:
		return NewBadgerStore(cfg)
	}
}

// NewMemoryStore creates the in-memory backend.
func NewMemoryStore() Store {
	return newMemoryStore()
}
