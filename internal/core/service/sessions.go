package service

import (
	"context"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/pkg/token"
)

// DefaultSessionTTL bounds a login session.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionService manages login sessions. Tokens are random, handed
// out once, and stored only as hashes.
type SessionService struct {
	store  storage.SessionStore
	ttl    time.Duration
	logger logger.Logger
}

// NewSessionService creates the session service. A zero ttl uses the
// default.
func NewSessionService(store storage.SessionStore, ttl time.Duration, log logger.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = logger.Default()
	}
	return &SessionService{store: store, ttl: ttl, logger: log}
}

// Create opens a session for the user and returns it with the
// plaintext token. The token is not recoverable afterwards.
func (s *SessionService) Create(ctx context.Context, user *domain.User) (*domain.Session, string, error) {
	plaintext, err := token.Generate()
	if err != nil {
		return nil, "", domain.ErrInternalError.WithCause(err)
	}
	now := time.Now()
	session := &domain.Session{
		ID:        domain.GenerateSessionID(),
		UserID:    user.ID,
		TokenHash: token.Hash(plaintext),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, "", err
	}
	s.logger.Info("session created", "session_id", session.ID, "user_id", user.ID)
	return session, plaintext, nil
}

// GetByToken returns the live session for a plaintext token. Expired
// sessions are deleted and reported as not found.
func (s *SessionService) GetByToken(ctx context.Context, plaintext string) (*domain.Session, error) {
	session, err := s.store.GetByTokenHash(ctx, token.Hash(plaintext))
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		_ = s.store.Delete(ctx, session.ID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Get loads a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		_ = s.store.Delete(ctx, session.ID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete closes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
