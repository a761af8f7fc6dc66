package storage

import (
	"context"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/pkg/cmap"
)

// memoryStore is the in-memory backend, used by tests and single-node
// development setups. All lookups, including the secondary-field
// ones, are index-backed maps.
type memoryStore struct {
	users      *cmap.Map[*domain.User]
	byUsername *cmap.Map[string]

	worlds *cmap.Map[*domain.World]

	instances *cmap.Map[*domain.Instance]
	byName    *cmap.Map[string]

	sessions    *cmap.Map[*domain.Session]
	byTokenHash *cmap.Map[string]

	servers   *cmap.Map[*domain.ServerRecord]
	byAddress *cmap.Map[string]

	integrity        *cmap.Map[*domain.IntegrityRecord]
	byIntegrityToken *cmap.Map[string]
	byIntegrityUser  *cmap.Map[string]
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:            cmap.New[*domain.User](),
		byUsername:       cmap.New[string](),
		worlds:           cmap.New[*domain.World](),
		instances:        cmap.New[*domain.Instance](),
		byName:           cmap.New[string](),
		sessions:         cmap.New[*domain.Session](),
		byTokenHash:      cmap.New[string](),
		servers:          cmap.New[*domain.ServerRecord](),
		byAddress:        cmap.New[string](),
		integrity:        cmap.New[*domain.IntegrityRecord](),
		byIntegrityToken: cmap.New[string](),
		byIntegrityUser:  cmap.New[string](),
	}
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) Users() UserStore          { return (*memUserStore)(s) }
func (s *memoryStore) Worlds() WorldStore        { return (*memWorldStore)(s) }
func (s *memoryStore) Instances() InstanceStore  { return (*memInstanceStore)(s) }
func (s *memoryStore) Sessions() SessionStore    { return (*memSessionStore)(s) }
func (s *memoryStore) Servers() ServerStore      { return (*memServerStore)(s) }
func (s *memoryStore) Integrity() IntegrityStore { return (*memIntegrityStore)(s) }

type memUserStore memoryStore

func (s *memUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users.Get(id); ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if id, ok := s.byUsername.Get(username); ok {
		return s.Get(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserStore) Put(_ context.Context, user *domain.User) error {
	if !user.Internal {
		return domain.ErrObjectNotInternal
	}
	c := *user
	s.users.Set(user.ID, &c)
	s.byUsername.Set(user.Username, user.ID)
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	if u, ok := s.users.Get(id); ok {
		s.byUsername.Delete(u.Username)
	}
	s.users.Delete(id)
	return nil
}

type memWorldStore memoryStore

func (s *memWorldStore) Get(_ context.Context, id string) (*domain.World, error) {
	if w, ok := s.worlds.Get(id); ok {
		c := *w
		return &c, nil
	}
	return nil, domain.ErrWorldNotFound
}

func (s *memWorldStore) Put(_ context.Context, world *domain.World) error {
	if !world.Internal {
		return domain.ErrObjectNotInternal
	}
	c := *world
	s.worlds.Set(world.ID, &c)
	return nil
}

func (s *memWorldStore) Delete(_ context.Context, id string) error {
	s.worlds.Delete(id)
	return nil
}

type memInstanceStore memoryStore

func (s *memInstanceStore) Get(_ context.Context, id string) (*domain.Instance, error) {
	if i, ok := s.instances.Get(id); ok {
		c := *i
		return &c, nil
	}
	return nil, domain.ErrInstanceNotFound
}

func (s *memInstanceStore) GetByName(ctx context.Context, name string) (*domain.Instance, error) {
	if id, ok := s.byName.Get(name); ok {
		return s.Get(ctx, id)
	}
	return nil, domain.ErrInstanceNotFound
}

func (s *memInstanceStore) Put(_ context.Context, instance *domain.Instance) error {
	if !instance.Internal {
		return domain.ErrObjectNotInternal
	}
	c := *instance
	s.instances.Set(instance.ID, &c)
	if instance.Name != "" {
		s.byName.Set(instance.Name, instance.ID)
	}
	return nil
}

func (s *memInstanceStore) Delete(_ context.Context, id string) error {
	if i, ok := s.instances.Get(id); ok && i.Name != "" {
		s.byName.Delete(i.Name)
	}
	s.instances.Delete(id)
	return nil
}

type memSessionStore memoryStore

func (s *memSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	if sess, ok := s.sessions.Get(id); ok {
		c := *sess
		return &c, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *memSessionStore) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	if id, ok := s.byTokenHash.Get(hash); ok {
		return s.Get(ctx, id)
	}
	return nil, domain.ErrSessionNotFound
}

func (s *memSessionStore) Put(_ context.Context, session *domain.Session) error {
	c := *session
	s.sessions.Set(session.ID, &c)
	s.byTokenHash.Set(session.TokenHash, session.ID)
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, id string) error {
	if sess, ok := s.sessions.Get(id); ok {
		s.byTokenHash.Delete(sess.TokenHash)
	}
	s.sessions.Delete(id)
	return nil
}

type memServerStore memoryStore

func (s *memServerStore) Get(_ context.Context, id string) (*domain.ServerRecord, error) {
	if sv, ok := s.servers.Get(id); ok {
		c := *sv
		return &c, nil
	}
	return nil, domain.ErrServerNotFound
}

func (s *memServerStore) GetByAddress(ctx context.Context, address string) (*domain.ServerRecord, error) {
	if id, ok := s.byAddress.Get(address); ok {
		return s.Get(ctx, id)
	}
	return nil, domain.ErrServerNotFound
}

func (s *memServerStore) Put(_ context.Context, server *domain.ServerRecord) error {
	c := *server
	s.servers.Set(server.ID, &c)
	s.byAddress.Set(server.Address, server.ID)
	return nil
}

func (s *memServerStore) Delete(_ context.Context, id string) error {
	if sv, ok := s.servers.Get(id); ok {
		s.byAddress.Delete(sv.Address)
	}
	s.servers.Delete(id)
	return nil
}

type memIntegrityStore memoryStore

func (s *memIntegrityStore) Get(_ context.Context, id string) (*domain.IntegrityRecord, error) {
	if r, ok := s.integrity.Get(id); ok {
		c := *r
		return &c, nil
	}
	return nil, domain.ErrIntegrityNotFound
}

func (s *memIntegrityStore) GetByToken(ctx context.Context, token string) (*domain.IntegrityRecord, error) {
	if id, ok := s.byIntegrityToken.Get(token); ok {
		return s.Get(ctx, id)
	}
	return nil, domain.ErrIntegrityNotFound
}

func (s *memIntegrityStore) GetActiveByUser(ctx context.Context, userIDs string) (*domain.IntegrityRecord, error) {
	if id, ok := s.byIntegrityUser.Get(userIDs); ok {
		r, err := s.Get(ctx, id)
		if err == nil && !r.IsExpired() {
			return r, nil
		}
	}
	return nil, domain.ErrIntegrityNotFound
}

func (s *memIntegrityStore) Put(_ context.Context, record *domain.IntegrityRecord) error {
	c := *record
	s.integrity.Set(record.ID, &c)
	s.byIntegrityToken.Set(record.Token, record.ID)
	s.byIntegrityUser.Set(record.UserIDs, record.ID)
	return nil
}

func (s *memIntegrityStore) Delete(_ context.Context, id string) error {
	if r, ok := s.integrity.Get(id); ok {
		s.byIntegrityToken.Delete(r.Token)
		s.byIntegrityUser.Delete(r.UserIDs)
	}
	s.integrity.Delete(id)
	return nil
}
