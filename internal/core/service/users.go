package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/hactazia/reileta/internal/cache"
	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// UserService manages accounts: local CRUD plus federated resolution
// of foreign users.
type UserService struct {
	store    storage.UserStore
	resolver *Resolver[domain.User]
	logger   logger.Logger
}

// NewUserService creates the user service.
func NewUserService(store storage.UserStore, registry *federation.Registry, client *federation.Client, metrics *metric.Registry, log logger.Logger) *UserService {
	if log == nil {
		log = logger.Default()
	}
	s := &UserService{store: store, logger: log}
	s.resolver = NewResolver(ResolverConfig[domain.User]{
		Kind:     "user",
		Registry: registry,
		Client:   client,
		Metrics:  metrics,
		ImportLocal: func(ctx context.Context, search Search) (*domain.User, error) {
			user, err := store.Get(ctx, search.ID)
			if errors.Is(err, domain.ErrUserNotFound) {
				// Ids double as usernames in user-typed references.
				return store.GetByUsername(ctx, search.ID)
			}
			return user, err
		},
		FetchPath: func(search Search) string {
			return "/api/users/" + search.ID
		},
		External: func(user *domain.User, server string) {
			user.Server = server
			user.Internal = false
			user.PasswordHash = ""
		},
		NotFound: domain.ErrUserNotFound,
	})
	return s
}

// Resolve returns the user named by search, fetching foreign users
// from their home server.
func (s *UserService) Resolve(ctx context.Context, search Search, actor Actor) (*domain.User, error) {
	return s.resolver.Resolve(ctx, search, actor)
}

// Cache exposes the resolution cache, for sweeping.
func (s *UserService) Cache() *cache.Cache {
	return s.resolver.Cache()
}

// Get loads a local user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.store.Get(ctx, id)
}

// GetByUsername loads a local user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.store.GetByUsername(ctx, username)
}

// Create registers a local account. Username must be unused.
func (s *UserService) Create(ctx context.Context, username, password, display string, tags []string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrUserInvalidInput
	}
	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUserInvalidInput.WithDetails("username taken")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, domain.ErrInternalError.WithCause(err)
	}
	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateUserID(),
		Username:     username,
		Display:      display,
		Tags:         slices.Clone(tags),
		Internal:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Tags == nil {
		user.Tags = []string{}
	}
	if err := s.store.Put(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID, "username", username)
	return user, nil
}

// Update persists changes to a local user and evicts the cached copy.
func (s *UserService) Update(ctx context.Context, user *domain.User) error {
	if !user.Internal {
		return domain.ErrObjectNotInternal
	}
	user.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, user); err != nil {
		return err
	}
	s.resolver.Evict(user.Identifier())
	return nil
}

// Delete removes a local user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.Evict(user.Identifier())
	return nil
}

// VerifyCredentials checks a username and password pair.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.ErrAuthInvalidLogin
	}
	if user.IsDisabled() && !user.IsAdministrator() {
		return nil, domain.ErrAuthInvalidLogin
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrAuthInvalidLogin
	}
	return user, nil
}

// EnsureRoot bootstraps the root administrator on first start. An
// existing account with the username is left untouched.
func (s *UserService) EnsureRoot(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return nil
	}
	_, err := s.Create(ctx, username, password, username, []string{
		domain.TagRoot,
		domain.TagAdmin,
		domain.TagWorldCreator,
		domain.TagInstanceCreator,
		domain.TagFetchExternal,
	})
	if err != nil {
		return err
	}
	s.logger.Info("root account bootstrapped", "username", username)
	return nil
}
