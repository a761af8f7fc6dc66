package service

import (
	"context"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
	"github.com/hactazia/reileta/pkg/token"
)

// DefaultIntegrityTTL bounds an integrity assertion.
const DefaultIntegrityTTL = 300 * time.Second

// ChallengeVerifier authenticates a peer's incoming integrity
// request. The default accepts everything; deployments wanting mutual
// authentication plug in their own.
type ChallengeVerifier interface {
	Verify(ctx context.Context, serverAddress, challenge string) error
}

// NoopChallenge accepts every peer.
type NoopChallenge struct{}

// Verify implements ChallengeVerifier.
func (NoopChallenge) Verify(context.Context, string, string) error { return nil }

// IntegrityGrant is the payload handed back when an assertion is
// issued, both to peers and to the requesting user.
type IntegrityGrant struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IntegrityService issues and validates cross-server identity
// assertions. A user asks a foreign server for access; that server
// calls back here with the user's federated id; this node answers
// with a short-lived token the foreign server can later present to
// authenticate the user without ever holding their session.
type IntegrityService struct {
	store    storage.IntegrityStore
	users    *UserService
	registry *federation.Registry
	client   *federation.Client
	verifier ChallengeVerifier
	ttl      time.Duration
	metrics  *metric.Registry
	logger   logger.Logger
}

// NewIntegrityService creates the integrity service. Zero ttl uses
// the default; nil verifier accepts every peer.
func NewIntegrityService(store storage.IntegrityStore, users *UserService, registry *federation.Registry, client *federation.Client, verifier ChallengeVerifier, ttl time.Duration, metrics *metric.Registry, log logger.Logger) *IntegrityService {
	if ttl <= 0 {
		ttl = DefaultIntegrityTTL
	}
	if verifier == nil {
		verifier = NoopChallenge{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &IntegrityService{
		store:    store,
		users:    users,
		registry: registry,
		client:   client,
		verifier: verifier,
		ttl:      ttl,
		metrics:  metrics,
		logger:   log,
	}
}

// Verifier exposes the configured challenge verifier for the inbound
// handler.
func (s *IntegrityService) Verifier() ChallengeVerifier {
	return s.verifier
}

// Make issues or extends the assertion for a federated user id. The
// user's home server and the user itself must both resolve before a
// token is minted. At most one active record exists per user: an
// active one has its expiry pushed out, otherwise a record with a
// fresh token is created.
func (s *IntegrityService) Make(ctx context.Context, userIDs string) (*domain.IntegrityRecord, error) {
	if userIDs == "" {
		return nil, domain.ErrIntegrityInvalidInput
	}

	id := domain.ParseIdentifier(userIDs)
	server := s.registry.Normalize(id.Server)
	if server != domain.SelfMarker {
		if _, err := s.registry.Resolve(ctx, server); err != nil {
			return nil, err
		}
	}
	user, err := s.users.Resolve(ctx, Search{ID: id.ID, Server: server}, Internal)
	if err != nil {
		return nil, err
	}
	// Records key on the canonical qualified id, so the alias the
	// caller used does not mint a second token.
	key := domain.Identifier{ID: user.ID, Server: server}.StringFor(s.registry.Address())

	if record, err := s.store.GetActiveByUser(ctx, key); err == nil {
		record.Extend(s.ttl)
		if err := s.store.Put(ctx, record); err != nil {
			return nil, err
		}
		s.countIssued()
		return record, nil
	}

	plaintext, err := token.Generate()
	if err != nil {
		return nil, domain.ErrInternalError.WithCause(err)
	}
	now := time.Now()
	record := &domain.IntegrityRecord{
		ID:        domain.GenerateIntegrityID(),
		UserIDs:   key,
		Token:     plaintext,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}
	s.countIssued()
	s.logger.Info("integrity issued", "integrity_id", record.ID, "user", key)
	return record, nil
}

// GetByToken validates an assertion token. Expired records are
// removed and reported as not found.
func (s *IntegrityService) GetByToken(ctx context.Context, plaintext string) (*domain.IntegrityRecord, error) {
	if plaintext == "" {
		return nil, domain.ErrIntegrityInvalidInput
	}
	record, err := s.store.GetByToken(ctx, plaintext)
	if err != nil {
		s.countVerified("miss")
		return nil, err
	}
	if record.IsExpired() {
		_ = s.store.Delete(ctx, record.ID)
		s.countVerified("expired")
		return nil, domain.ErrIntegrityNotFound
	}
	s.countVerified("ok")
	return record, nil
}

// Request asks a foreign server to vouch for the acting user there:
// this node calls the peer's integrity endpoint with the user's
// federated id and relays the grant back to the user.
func (s *IntegrityService) Request(ctx context.Context, actor Actor, serverAddress string) (*IntegrityGrant, error) {
	if actor.User == nil {
		return nil, domain.ErrUserNotLogged
	}
	if !actor.User.CanFetch() {
		return nil, domain.ErrUserDontHavePermission
	}
	target := s.registry.Normalize(serverAddress)
	if target == domain.SelfMarker {
		record, err := s.Make(ctx, actor.User.Identifier().StringFor(s.registry.Address()))
		if err != nil {
			return nil, err
		}
		return &IntegrityGrant{ID: record.ID, User: record.UserIDs, Token: record.Token, ExpiresAt: record.ExpiresAt}, nil
	}

	peer, err := s.registry.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	body := map[string]string{
		"user": actor.User.Identifier().StringFor(s.registry.Address()),
	}
	grant, err := federation.FetchData[IntegrityGrant](ctx, s.client, peer, "PUT", "/api/integrity", body)
	if err != nil {
		return nil, err
	}
	// The peer vouches for exactly the user we asked about.
	echo := domain.ParseIdentifier(grant.User)
	if echo.ID != actor.User.ID || s.registry.Normalize(echo.Server) != domain.SelfMarker {
		return nil, domain.ErrUserNotFound.WithDetails(grant.User)
	}
	return grant, nil
}

func (s *IntegrityService) countIssued() {
	if s.metrics != nil {
		s.metrics.IntegrityIssued.Inc()
	}
}

func (s *IntegrityService) countVerified(outcome string) {
	if s.metrics != nil {
		s.metrics.IntegrityVerified.WithLabelValues(outcome).Inc()
	}
}
