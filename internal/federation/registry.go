package federation

import (
	"context"
	"net/url"
	"strings"

	"github.com/hactazia/reileta/internal/cache"
	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/pkg/cmap"
	"github.com/hactazia/reileta/pkg/token"
)

// Registry resolves server addresses to persisted peer records,
// discovering unknown peers over HTTP. Every alias an address is
// reached through gets linked to the peer's self-reported canonical
// address, so the same peer never yields two records.
type Registry struct {
	servers storage.ServerStore
	client  *Client
	cache   *cache.Cache
	links   *cmap.Map[string]
	self    *domain.ServerRecord
	logger  logger.Logger
}

// NewRegistry creates a registry for the given node identity.
func NewRegistry(servers storage.ServerStore, client *Client, self *domain.ServerRecord, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		servers: servers,
		client:  client,
		cache:   cache.New(cache.DefaultTTL),
		links:   cmap.New[string](),
		self:    self,
		logger:  log,
	}
}

// Self returns this node's own record.
func (r *Registry) Self() *domain.ServerRecord {
	c := *r.self
	return &c
}

// Address returns this node's canonical public address.
func (r *Registry) Address() string {
	return r.self.Address
}

// Normalize maps an address to its canonical form: the self marker
// for this node, a previously linked canonical address for known
// aliases, the stripped address otherwise.
func (r *Registry) Normalize(address string) string {
	addr := domain.NormalizeServer(address, r.self.Address)
	if addr == domain.SelfMarker {
		return addr
	}
	if canonical, ok := r.links.Get(addr); ok {
		return canonical
	}
	return addr
}

// Resolve returns the record for a server address, discovering the
// peer when it is not yet known. Resolving this node's own address
// never touches the network. Concurrent resolutions of one address
// collapse into a single discovery.
func (r *Registry) Resolve(ctx context.Context, address string) (*domain.ServerRecord, error) {
	addr := r.Normalize(address)
	if addr == domain.SelfMarker {
		return r.Self(), nil
	}

	v, err := r.cache.Resolve("server/"+addr, func() (any, error) {
		return r.lookup(ctx, addr)
	})
	if err != nil {
		return nil, err
	}
	record := v.(*domain.ServerRecord)
	c := *record
	return &c, nil
}

func (r *Registry) lookup(ctx context.Context, addr string) (*domain.ServerRecord, error) {
	if record, err := r.servers.GetByAddress(ctx, addr); err == nil {
		return record, nil
	}
	return r.discover(ctx, addr)
}

// discover probes the address over https, then http, and persists
// the peer's self-description.
func (r *Registry) discover(ctx context.Context, addr string) (*domain.ServerRecord, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		probe := &domain.ServerRecord{
			Address:  addr,
			Gateways: domain.Gateways{HTTP: scheme + "://" + addr, WS: wsScheme(scheme) + "://" + addr},
		}
		reported, err := FetchData[domain.ServerRecord](ctx, r.client, probe, "GET", "/api/server", nil)
		if err != nil {
			lastErr = err
			continue
		}
		if !reported.Valid() {
			lastErr = domain.ErrBadDataFromServer.WithDetails(addr)
			continue
		}
		reported.Secure = scheme == "https"
		return r.adopt(ctx, addr, reported)
	}
	if lastErr == nil {
		lastErr = domain.ErrNoResponseFromServer.WithDetails(addr)
	}
	r.logger.Warn("server discovery failed", "address", addr, "error", lastErr)
	return nil, domain.ErrServerNotFound.WithDetails(addr).WithCause(lastErr)
}

// adopt upserts a discovered record under the peer's self-reported
// address and links the alias it was reached through, plus both
// gateway hosts, so later references via any of them skip
// rediscovery.
func (r *Registry) adopt(ctx context.Context, alias string, reported *domain.ServerRecord) (*domain.ServerRecord, error) {
	canonical := domain.StripScheme(reported.Address)
	if canonical == "" {
		return nil, domain.ErrBadDataFromServer.WithDetails("empty address")
	}
	reported.Address = canonical

	if existing, err := r.servers.GetByAddress(ctx, canonical); err == nil {
		reported.ID = existing.ID
		reported.Challenge = existing.Challenge
	} else {
		reported.ID = domain.GenerateServerID()
		secret, err := token.Generate()
		if err != nil {
			return nil, domain.ErrInternalError.WithCause(err)
		}
		reported.Challenge = secret
	}

	if err := r.servers.Put(ctx, reported); err != nil {
		return nil, err
	}
	if alias != canonical {
		r.links.Set(alias, canonical)
	}
	for _, gw := range []string{reported.Gateways.HTTP, reported.Gateways.WS} {
		if u, err := url.Parse(gw); err == nil && u.Host != "" && u.Host != canonical {
			r.links.Set(u.Host, canonical)
		}
	}
	r.logger.Info("discovered server",
		"address", canonical, "alias", alias, "version", reported.Version)
	return reported, nil
}

// Cache exposes the discovery cache, for sweeping.
func (r *Registry) Cache() *cache.Cache {
	return r.cache
}

// Forget evicts the cached record for an address, forcing the next
// Resolve to hit the store or rediscover.
func (r *Registry) Forget(address string) {
	r.cache.Delete("server/" + r.Normalize(address))
}

func wsScheme(httpScheme string) string {
	if strings.HasSuffix(httpScheme, "s") {
		return "wss"
	}
	return "ws"
}
