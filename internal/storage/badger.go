package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/pkg/crypto/adaptive"
)

// Key prefixes. Secondary lookups go through idx/ keys whose value is
// the primary id.
const (
	keyUser      = "user/"
	keyWorld     = "world/"
	keyInstance  = "instance/"
	keySession   = "session/"
	keyServer    = "server/"
	keyIntegrity = "integrity/"

	idxUsername       = "idx/user/username/"
	idxInstanceName   = "idx/instance/name/"
	idxSessionToken   = "idx/session/token/"
	idxServerAddress  = "idx/server/address/"
	idxIntegrityToken = "idx/integrity/token/"
	idxIntegrityUser  = "idx/integrity/user/"
)

// badgerStore is the production backend. Domain structs hide their
// server-side fields from JSON, so the store serializes dedicated
// record types that carry every field.
type badgerStore struct {
	db     *badger.DB
	cipher adaptive.Cipher
	logger *slog.Logger
}

// NewBadgerStore opens the badger backend at cfg.DataDir.
func NewBadgerStore(cfg Config) (Store, error) {
	opts := badger.DefaultOptions(cfg.DataDir).
		WithLogger(&badgerLogger{logger: cfg.Logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.DataDir, err)
	}
	return &badgerStore{db: db, cipher: cfg.Cipher, logger: cfg.Logger}, nil
}

func (s *badgerStore) Close() error { return s.db.Close() }

func (s *badgerStore) Users() UserStore          { return &badgerUserStore{s} }
func (s *badgerStore) Worlds() WorldStore        { return &badgerWorldStore{s} }
func (s *badgerStore) Instances() InstanceStore  { return &badgerInstanceStore{s} }
func (s *badgerStore) Sessions() SessionStore    { return &badgerSessionStore{s} }
func (s *badgerStore) Servers() ServerStore      { return &badgerServerStore{s} }
func (s *badgerStore) Integrity() IntegrityStore { return &badgerIntegrityStore{s} }

// get reads key and decodes JSON into out. notFound is returned when
// the key is absent.
func (s *badgerStore) get(key string, out any, notFound error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	return err
}

// getIndirect resolves an idx/ key to a primary id, then loads it.
func (s *badgerStore) getIndirect(idxKey, primaryPrefix string, out any, notFound error) error {
	var id string
	if err := s.get(idxKey, &id, notFound); err != nil {
		return err
	}
	return s.get(primaryPrefix+id, out, notFound)
}

// put writes the record and its index keys in one transaction.
func (s *badgerStore) put(key string, record any, ttl time.Duration, indexes map[string]string) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		for idx, id := range indexes {
			val, err := json.Marshal(id)
			if err != nil {
				return err
			}
			idxEntry := badger.NewEntry([]byte(idx), val)
			if ttl > 0 {
				idxEntry = idxEntry.WithTTL(ttl)
			}
			if err := txn.SetEntry(idxEntry); err != nil {
				return err
			}
		}
		return nil
	})
}

// delete removes the record and any index keys.
func (s *badgerStore) delete(keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// sealChallenge encrypts a peer challenge secret for storage. With no
// cipher configured the secret is stored as-is.
func (s *badgerStore) sealChallenge(challenge string) (string, error) {
	if s.cipher == nil || challenge == "" {
		return challenge, nil
	}
	sealed, err := s.cipher.Encrypt([]byte(challenge), []byte("server-challenge"))
	if err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (s *badgerStore) openChallenge(sealed string) (string, error) {
	if s.cipher == nil || sealed == "" {
		return sealed, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	plain, err := s.cipher.Decrypt(raw, []byte("server-challenge"))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Display      string    `json:"display,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Home         string    `json:"home,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Display:      r.Display,
		Tags:         r.Tags,
		Internal:     true,
		Home:         r.Home,
		Thumbnail:    r.Thumbnail,
		Banner:       r.Banner,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type badgerUserStore struct{ *badgerStore }

func (s *badgerUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	var r userRecord
	if err := s.get(keyUser+id, &r, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var r userRecord
	if err := s.getIndirect(idxUsername+username, keyUser, &r, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerUserStore) Put(_ context.Context, user *domain.User) error {
	if !user.Internal {
		return domain.ErrObjectNotInternal
	}
	r := userRecord{
		ID:           user.ID,
		Username:     user.Username,
		Display:      user.Display,
		Tags:         user.Tags,
		Home:         user.Home,
		Thumbnail:    user.Thumbnail,
		Banner:       user.Banner,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	return s.put(keyUser+user.ID, &r, 0, map[string]string{
		idxUsername + user.Username: user.ID,
	})
}

func (s *badgerUserStore) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.delete(keyUser+id, idxUsername+user.Username)
}

type worldRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerIDs    string    `json:"owner"`
	Tags        []string  `json:"tags,omitempty"`
	Version     string    `json:"version,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type badgerWorldStore struct{ *badgerStore }

func (s *badgerWorldStore) Get(_ context.Context, id string) (*domain.World, error) {
	var r worldRecord
	if err := s.get(keyWorld+id, &r, domain.ErrWorldNotFound); err != nil {
		return nil, err
	}
	return &domain.World{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		OwnerIDs:    r.OwnerIDs,
		Tags:        r.Tags,
		Version:     r.Version,
		Capacity:    r.Capacity,
		Thumbnail:   r.Thumbnail,
		Internal:    true,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func (s *badgerWorldStore) Put(_ context.Context, world *domain.World) error {
	if !world.Internal {
		return domain.ErrObjectNotInternal
	}
	r := worldRecord{
		ID:          world.ID,
		Title:       world.Title,
		Description: world.Description,
		OwnerIDs:    world.OwnerIDs,
		Tags:        world.Tags,
		Version:     world.Version,
		Capacity:    world.Capacity,
		Thumbnail:   world.Thumbnail,
		CreatedAt:   world.CreatedAt,
		UpdatedAt:   world.UpdatedAt,
	}
	return s.put(keyWorld+world.ID, &r, 0, nil)
}

func (s *badgerWorldStore) Delete(_ context.Context, id string) error {
	return s.delete(keyWorld + id)
}

type instanceRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	OwnerIDs    string    `json:"owner"`
	WorldIDs    string    `json:"world"`
	Capacity    int       `json:"capacity"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *instanceRecord) toDomain() *domain.Instance {
	return &domain.Instance{
		ID:          r.ID,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		OwnerIDs:    r.OwnerIDs,
		WorldIDs:    r.WorldIDs,
		Capacity:    r.Capacity,
		Tags:        r.Tags,
		Internal:    true,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type badgerInstanceStore struct{ *badgerStore }

func (s *badgerInstanceStore) Get(_ context.Context, id string) (*domain.Instance, error) {
	var r instanceRecord
	if err := s.get(keyInstance+id, &r, domain.ErrInstanceNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerInstanceStore) GetByName(_ context.Context, name string) (*domain.Instance, error) {
	var r instanceRecord
	if err := s.getIndirect(idxInstanceName+name, keyInstance, &r, domain.ErrInstanceNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerInstanceStore) Put(_ context.Context, instance *domain.Instance) error {
	if !instance.Internal {
		return domain.ErrObjectNotInternal
	}
	r := instanceRecord{
		ID:          instance.ID,
		Name:        instance.Name,
		Title:       instance.Title,
		Description: instance.Description,
		OwnerIDs:    instance.OwnerIDs,
		WorldIDs:    instance.WorldIDs,
		Capacity:    instance.Capacity,
		Tags:        instance.Tags,
		CreatedAt:   instance.CreatedAt,
		UpdatedAt:   instance.UpdatedAt,
	}
	var indexes map[string]string
	if instance.Name != "" {
		indexes = map[string]string{idxInstanceName + instance.Name: instance.ID}
	}
	return s.put(keyInstance+instance.ID, &r, 0, indexes)
}

func (s *badgerInstanceStore) Delete(ctx context.Context, id string) error {
	instance, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			return nil
		}
		return err
	}
	keys := []string{keyInstance + id}
	if instance.Name != "" {
		keys = append(keys, idxInstanceName+instance.Name)
	}
	return s.delete(keys...)
}

type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *sessionRecord) toDomain() *domain.Session {
	return &domain.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		TokenHash: r.TokenHash,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

type badgerSessionStore struct{ *badgerStore }

func (s *badgerSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	var r sessionRecord
	if err := s.get(keySession+id, &r, domain.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerSessionStore) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	var r sessionRecord
	if err := s.getIndirect(idxSessionToken+hash, keySession, &r, domain.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerSessionStore) Put(_ context.Context, session *domain.Session) error {
	r := sessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		TokenHash: session.TokenHash,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return s.put(keySession+session.ID, &r, ttl, map[string]string{
		idxSessionToken + session.TokenHash: session.ID,
	})
}

func (s *badgerSessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.delete(keySession+id, idxSessionToken+session.TokenHash)
}

type serverRecord struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Address     string          `json:"address"`
	Gateways    domain.Gateways `json:"gateways"`
	Secure      bool            `json:"secure"`
	Version     string          `json:"version"`
	ReadyAt     domain.Millis   `json:"ready_at"`
	Icon        string          `json:"icon,omitempty"`
	Challenge   string          `json:"challenge,omitempty"`
}

type badgerServerStore struct{ *badgerStore }

func (s *badgerServerStore) load(key string) (*domain.ServerRecord, error) {
	var r serverRecord
	if err := s.get(key, &r, domain.ErrServerNotFound); err != nil {
		return nil, err
	}
	challenge, err := s.openChallenge(r.Challenge)
	if err != nil {
		return nil, err
	}
	return &domain.ServerRecord{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Address:     r.Address,
		Gateways:    r.Gateways,
		Secure:      r.Secure,
		Version:     r.Version,
		ReadyAt:     r.ReadyAt,
		Icon:        r.Icon,
		Challenge:   challenge,
	}, nil
}

func (s *badgerServerStore) Get(_ context.Context, id string) (*domain.ServerRecord, error) {
	return s.load(keyServer + id)
}

func (s *badgerServerStore) GetByAddress(_ context.Context, address string) (*domain.ServerRecord, error) {
	var id string
	if err := s.get(idxServerAddress+address, &id, domain.ErrServerNotFound); err != nil {
		return nil, err
	}
	return s.load(keyServer + id)
}

func (s *badgerServerStore) Put(_ context.Context, server *domain.ServerRecord) error {
	challenge, err := s.sealChallenge(server.Challenge)
	if err != nil {
		return err
	}
	r := serverRecord{
		ID:          server.ID,
		Title:       server.Title,
		Description: server.Description,
		Address:     server.Address,
		Gateways:    server.Gateways,
		Secure:      server.Secure,
		Version:     server.Version,
		ReadyAt:     server.ReadyAt,
		Icon:        server.Icon,
		Challenge:   challenge,
	}
	return s.put(keyServer+server.ID, &r, 0, map[string]string{
		idxServerAddress + server.Address: server.ID,
	})
}

func (s *badgerServerStore) Delete(ctx context.Context, id string) error {
	server, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrServerNotFound) {
			return nil
		}
		return err
	}
	return s.delete(keyServer+id, idxServerAddress+server.Address)
}

type integrityRecord struct {
	ID        string    `json:"id"`
	UserIDs   string    `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *integrityRecord) toDomain() *domain.IntegrityRecord {
	return &domain.IntegrityRecord{
		ID:        r.ID,
		UserIDs:   r.UserIDs,
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type badgerIntegrityStore struct{ *badgerStore }

func (s *badgerIntegrityStore) Get(_ context.Context, id string) (*domain.IntegrityRecord, error) {
	var r integrityRecord
	if err := s.get(keyIntegrity+id, &r, domain.ErrIntegrityNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerIntegrityStore) GetByToken(_ context.Context, token string) (*domain.IntegrityRecord, error) {
	var r integrityRecord
	if err := s.getIndirect(idxIntegrityToken+token, keyIntegrity, &r, domain.ErrIntegrityNotFound); err != nil {
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *badgerIntegrityStore) GetActiveByUser(_ context.Context, userIDs string) (*domain.IntegrityRecord, error) {
	var r integrityRecord
	if err := s.getIndirect(idxIntegrityUser+userIDs, keyIntegrity, &r, domain.ErrIntegrityNotFound); err != nil {
		return nil, err
	}
	rec := r.toDomain()
	if rec.IsExpired() {
		return nil, domain.ErrIntegrityNotFound
	}
	return rec, nil
}

func (s *badgerIntegrityStore) Put(_ context.Context, record *domain.IntegrityRecord) error {
	r := integrityRecord{
		ID:        record.ID,
		UserIDs:   record.UserIDs,
		Token:     record.Token,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.put(keyIntegrity+record.ID, &r, ttl, map[string]string{
		idxIntegrityToken + record.Token:  record.ID,
		idxIntegrityUser + record.UserIDs: record.ID,
	})
}

func (s *badgerIntegrityStore) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrIntegrityNotFound) {
			return nil
		}
		return err
	}
	return s.delete(keyIntegrity+id, idxIntegrityToken+record.Token, idxIntegrityUser+record.UserIDs)
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
