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

// InstanceService manages live instances and resolves foreign ones.
type InstanceService struct {
	store    storage.InstanceStore
	worlds   *WorldService
	resolver *Resolver[domain.Instance]
	logger   logger.Logger
}

// NewInstanceService creates the instance service.
func NewInstanceService(store storage.InstanceStore, worlds *WorldService, registry *federation.Registry, client *federation.Client, metrics *metric.Registry, log logger.Logger) *InstanceService {
	if log == nil {
		log = logger.Default()
	}
	s := &InstanceService{store: store, worlds: worlds, logger: log}
	s.resolver = NewResolver(ResolverConfig[domain.Instance]{
		Kind:     "instance",
		Registry: registry,
		Client:   client,
		Metrics:  metrics,
		ImportLocal: func(ctx context.Context, search Search) (*domain.Instance, error) {
			instance, err := store.Get(ctx, search.ID)
			if errors.Is(err, domain.ErrInstanceNotFound) {
				// Short joinable names resolve like ids.
				return store.GetByName(ctx, search.ID)
			}
			return instance, err
		},
		FetchPath: func(search Search) string {
			return "/api/instances/" + search.ID
		},
		External: func(instance *domain.Instance, server string) {
			instance.Server = server
			instance.Internal = false
		},
		NotFound: domain.ErrInstanceNotFound,
	})
	return s
}

// Resolve returns the instance named by search.
func (s *InstanceService) Resolve(ctx context.Context, search Search, actor Actor) (*domain.Instance, error) {
	return s.resolver.Resolve(ctx, search, actor)
}

// Cache exposes the resolution cache, for sweeping.
func (s *InstanceService) Cache() *cache.Cache {
	return s.resolver.Cache()
}

// Create registers a local instance of a world. The world reference
// may be foreign; it is resolved on behalf of the actor. A zero
// capacity inherits the world's, then the default.
func (s *InstanceService) Create(ctx context.Context, actor Actor, worldRef, name, title string, capacity int, tags []string) (*domain.Instance, error) {
	if !actor.Bypass {
		if actor.User == nil {
			return nil, domain.ErrUserNotLogged
		}
		if !actor.User.CanCreateInstance() {
			return nil, domain.ErrUserDontHavePermission
		}
	}
	if worldRef == "" {
		return nil, domain.ErrInstanceInvalidInput.WithDetails("world required")
	}

	world, err := s.worlds.Resolve(ctx, SearchIdentifier(domain.ParseIdentifier(worldRef)), actor)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = domain.GenerateInstanceName()
	}
	if _, err := s.store.GetByName(ctx, name); err == nil {
		return nil, domain.ErrInstanceAlreadyExists.WithDetails(name)
	}
	if capacity == 0 {
		capacity = world.Capacity
	}

	now := time.Now()
	instance := &domain.Instance{
		ID:        domain.GenerateInstanceID(),
		Name:      name,
		Title:     title,
		WorldIDs:  world.Identifier().String(),
		Capacity:  capacity,
		Tags:      slices.Clone(tags),
		Internal:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if instance.Tags == nil {
		instance.Tags = []string{}
	}
	if actor.User != nil {
		instance.OwnerIDs = actor.User.Identifier().String()
	}
	if err := s.store.Put(ctx, instance); err != nil {
		return nil, err
	}
	s.logger.Info("instance created",
		"instance_id", instance.ID, "name", name, "world", instance.WorldIDs)
	return instance, nil
}

// Delete removes a local instance.
func (s *InstanceService) Delete(ctx context.Context, id string) error {
	instance, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.Evict(instance.Identifier())
	return nil
}
