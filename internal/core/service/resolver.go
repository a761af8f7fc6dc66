// Package service implements the application operations: federated
// record resolution, accounts and sessions, instance lifecycle, and
// integrity assertions. Handlers stay thin; the rules live here.
package service

import (
	"context"

	"github.com/hactazia/reileta/internal/cache"
	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// Actor is the caller on whose behalf a resolution runs. Bypass
// actors skip permission checks; they are only constructed by
// server-internal flows such as integrity validation.
type Actor struct {
	User   *domain.User
	Bypass bool
}

// Internal is the bypass actor for server-internal resolutions.
var Internal = Actor{Bypass: true}

// ActorFor wraps a user as an acting caller.
func ActorFor(user *domain.User) Actor {
	return Actor{User: user}
}

// Search names a record to resolve.
type Search struct {
	ID        string
	Server    string
	Qualifier string

	// Force skips the cache and refreshes the record.
	Force bool
}

// SearchIdentifier converts a parsed identifier into a search.
func SearchIdentifier(id domain.Identifier) Search {
	return Search{ID: id.ID, Server: id.Server, Qualifier: id.Qualifier}
}

// Resolver resolves one kind of federated record: local records are
// imported from the store, remote records fetched from their owning
// server, and both sides go through a shared TTL cache keyed by the
// normalized identifier. Concurrent resolutions of the same record
// collapse into one fill.
type Resolver[T any] struct {
	kind     string
	cache    *cache.Cache
	registry *federation.Registry
	client   *federation.Client
	metrics  *metric.Registry

	// importLocal loads a record owned by this node.
	importLocal func(ctx context.Context, search Search) (*T, error)

	// fetchPath is the peer endpoint for a record id.
	fetchPath func(search Search) string

	// external marks a fetched record with its owning server.
	external func(record *T, server string)

	notFound *domain.ErrorMessage
}

// ResolverConfig assembles a resolver.
type ResolverConfig[T any] struct {
	Kind        string
	Registry    *federation.Registry
	Client      *federation.Client
	Metrics     *metric.Registry
	ImportLocal func(ctx context.Context, search Search) (*T, error)
	FetchPath   func(search Search) string
	External    func(record *T, server string)
	NotFound    *domain.ErrorMessage
}

// NewResolver creates a resolver with its own cache.
func NewResolver[T any](cfg ResolverConfig[T]) *Resolver[T] {
	return &Resolver[T]{
		kind:        cfg.Kind,
		cache:       cache.New(cache.DefaultTTL),
		registry:    cfg.Registry,
		client:      cfg.Client,
		metrics:     cfg.Metrics,
		importLocal: cfg.ImportLocal,
		fetchPath:   cfg.FetchPath,
		external:    cfg.External,
		notFound:    cfg.NotFound,
	}
}

// Resolve returns the record named by search. Remote fetches require
// an actor allowed to trigger them.
func (r *Resolver[T]) Resolve(ctx context.Context, search Search, actor Actor) (*T, error) {
	if search.ID == "" {
		return nil, r.notFound
	}
	search.Server = r.registry.Normalize(search.Server)
	key := r.kind + "/" + domain.Identifier{ID: search.ID, Server: search.Server}.String()

	if search.Force {
		r.cache.Delete(key)
	} else if hit, ok := cache.GetAs[*T](r.cache, key); ok {
		r.countHit()
		return hit, nil
	}
	r.countMiss()

	v, err := r.cache.Resolve(key, func() (any, error) {
		if search.Server == domain.SelfMarker {
			return r.importLocal(ctx, search)
		}
		return r.fetchRemote(ctx, search, actor)
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// fetchRemote pulls a record from its owning server after the actor's
// fetch permission is checked.
func (r *Resolver[T]) fetchRemote(ctx context.Context, search Search, actor Actor) (*T, error) {
	if !actor.Bypass {
		if actor.User == nil {
			return nil, domain.ErrUserNotLogged
		}
		if !actor.User.CanFetch() {
			return nil, domain.ErrUserDontHavePermission
		}
	}

	peer, err := r.registry.Resolve(ctx, search.Server)
	if err != nil {
		return nil, err
	}
	record, err := federation.FetchData[T](ctx, r.client, peer, "GET", r.fetchPath(search), nil)
	if err != nil {
		if domain.CodeOf(err) == domain.CodeOf(r.notFound) {
			return nil, r.notFound
		}
		return nil, err
	}
	if r.external != nil {
		r.external(record, peer.Address)
	}
	return record, nil
}

// Evict drops a record from the cache.
func (r *Resolver[T]) Evict(id domain.Identifier) {
	id.Server = r.registry.Normalize(id.Server)
	id.Qualifier = ""
	r.cache.Delete(r.kind + "/" + id.String())
}

// Cache exposes the resolver cache, for sweeping.
func (r *Resolver[T]) Cache() *cache.Cache {
	return r.cache
}

func (r *Resolver[T]) countHit() {
	if r.metrics != nil {
		r.metrics.ResolverHits.WithLabelValues(r.kind).Inc()
	}
}

func (r *Resolver[T]) countMiss() {
	if r.metrics != nil {
		r.metrics.ResolverMisses.WithLabelValues(r.kind).Inc()
	}
}
