package service

import (
	"context"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/telemetry/logger"
)

// AuthService authenticates callers. Two credentials exist: session
// tokens for this node's own users, and integrity tokens for foreign
// users vouched for by this node. A caller presents exactly one.
type AuthService struct {
	users     *UserService
	sessions  *SessionService
	integrity *IntegrityService
	logger    logger.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(users *UserService, sessions *SessionService, integrity *IntegrityService, log logger.Logger) *AuthService {
	if log == nil {
		log = logger.Default()
	}
	return &AuthService{users: users, sessions: sessions, integrity: integrity, logger: log}
}

// Login verifies credentials and opens a session, returning the user,
// the session and the plaintext token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.Session, string, error) {
	if username == "" || password == "" {
		return nil, nil, "", domain.ErrAuthInvalidInput
	}
	user, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, nil, "", err
	}
	session, plaintext, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, nil, "", err
	}
	return user, session, plaintext, nil
}

// Logout closes the session behind a token.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	session, err := s.sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return err
	}
	return s.sessions.Delete(ctx, session.ID)
}

// Authenticate resolves a caller from its credentials. Providing both
// a session token and an integrity token, or neither, is invalid.
func (s *AuthService) Authenticate(ctx context.Context, sessionToken, integrityToken string) (*domain.User, error) {
	switch {
	case sessionToken != "" && integrityToken != "":
		return nil, domain.ErrAuthInvalidInput
	case sessionToken != "":
		return s.AuthenticateToken(ctx, sessionToken)
	case integrityToken != "":
		return s.AuthenticateIntegrity(ctx, integrityToken)
	default:
		return nil, domain.ErrAuthInvalidInput
	}
}

// AuthenticateToken resolves the local user behind a session token.
func (s *AuthService) AuthenticateToken(ctx context.Context, sessionToken string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, domain.ErrAuthInvalidLogin
	}
	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		return nil, domain.ErrAuthInvalidLogin
	}
	if user.IsDisabled() && !user.IsAdministrator() {
		return nil, domain.ErrAuthInvalidLogin
	}
	return user, nil
}

// AuthenticateIntegrity resolves the user behind an integrity token.
// The assertion names a federated user id; the user record is
// resolved server-internally and handed back as an external copy so
// it can never act as a local account.
func (s *AuthService) AuthenticateIntegrity(ctx context.Context, integrityToken string) (*domain.User, error) {
	record, err := s.integrity.GetByToken(ctx, integrityToken)
	if err != nil {
		return nil, err
	}
	id := domain.ParseIdentifier(record.UserIDs)
	user, err := s.users.Resolve(ctx, SearchIdentifier(id), Internal)
	if err != nil {
		return nil, err
	}
	server := id.Server
	if server == domain.SelfMarker {
		server = ""
	}
	return user.External(server), nil
}
