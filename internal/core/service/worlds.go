package service

import (
	"context"
	"slices"
	"time"

	"github.com/hactazia/reileta/internal/cache"
	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// WorldService manages worlds and resolves foreign ones.
type WorldService struct {
	store    storage.WorldStore
	resolver *Resolver[domain.World]
	logger   logger.Logger
}

// NewWorldService creates the world service.
func NewWorldService(store storage.WorldStore, registry *federation.Registry, client *federation.Client, metrics *metric.Registry, log logger.Logger) *WorldService {
	if log == nil {
		log = logger.Default()
	}
	s := &WorldService{store: store, logger: log}
	s.resolver = NewResolver(ResolverConfig[domain.World]{
		Kind:     "world",
		Registry: registry,
		Client:   client,
		Metrics:  metrics,
		ImportLocal: func(ctx context.Context, search Search) (*domain.World, error) {
			return store.Get(ctx, search.ID)
		},
		FetchPath: func(search Search) string {
			path := "/api/worlds/" + search.ID
			if search.Qualifier != "" {
				path += "?version=" + search.Qualifier
			}
			return path
		},
		External: func(world *domain.World, server string) {
			world.Server = server
			world.Internal = false
		},
		NotFound: domain.ErrWorldNotFound,
	})
	return s
}

// Resolve returns the world named by search.
func (s *WorldService) Resolve(ctx context.Context, search Search, actor Actor) (*domain.World, error) {
	return s.resolver.Resolve(ctx, search, actor)
}

// Cache exposes the resolution cache, for sweeping.
func (s *WorldService) Cache() *cache.Cache {
	return s.resolver.Cache()
}

// Create registers a local world.
func (s *WorldService) Create(ctx context.Context, actor Actor, title, description string, capacity int, tags []string) (*domain.World, error) {
	if !actor.Bypass {
		if actor.User == nil {
			return nil, domain.ErrUserNotLogged
		}
		if !actor.User.Internal || (!actor.User.HasTag(domain.TagWorldCreator) && !actor.User.IsAdministrator()) {
			return nil, domain.ErrUserDontHavePermission
		}
	}
	if title == "" {
		return nil, domain.ErrUserInvalidInput.WithDetails("title required")
	}
	now := time.Now()
	world := &domain.World{
		ID:          domain.GenerateWorldID(),
		Title:       title,
		Description: description,
		Capacity:    capacity,
		Tags:        slices.Clone(tags),
		Internal:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if world.Tags == nil {
		world.Tags = []string{}
	}
	if actor.User != nil {
		world.OwnerIDs = actor.User.Identifier().String()
	}
	if err := s.store.Put(ctx, world); err != nil {
		return nil, err
	}
	s.logger.Info("world created", "world_id", world.ID, "title", title)
	return world, nil
}

// Delete removes a local world.
func (s *WorldService) Delete(ctx context.Context, id string) error {
	world, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.Evict(world.Identifier())
	return nil
}
