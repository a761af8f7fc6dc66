package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/pkg/crypto/adaptive"
)

// runBackends runs a conformance test against every backend.
func runBackends(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		fn(t, store)
	})

	t.Run("badger", func(t *testing.T) {
		key := make([]byte, 32)
		cipher, err := adaptive.New(key)
		if err != nil {
			t.Fatalf("adaptive.New() error = %v", err)
		}
		store, err := Open(Config{Backend: "badger", DataDir: t.TempDir(), Cipher: cipher})
		if err != nil {
			t.Fatalf("Open(badger) error = %v", err)
		}
		defer store.Close()
		fn(t, store)
	})
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	store, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()
	if store.Users() == nil {
		t.Error("Open() returned store without user access")
	}
}

func TestStore_Users(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		users := store.Users()

		user := &domain.User{
			ID:           "u_abc",
			Username:     "alice",
			Display:      "Alice",
			Tags:         []string{domain.TagWorldCreator},
			Internal:     true,
			PasswordHash: "$argon2id$fake",
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := users.Put(ctx, user); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := users.Get(ctx, "u_abc")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Username != "alice" || !got.Internal {
			t.Errorf("Get() = %+v", got)
		}
		if got.PasswordHash != user.PasswordHash {
			t.Error("password hash should round trip")
		}

		byName, err := users.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetByUsername() error = %v", err)
		}
		if byName.ID != "u_abc" {
			t.Errorf("GetByUsername() id = %q", byName.ID)
		}

		if _, err := users.Get(ctx, "u_missing"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrUserNotFound", err)
		}

		// External records are never persisted as owned data.
		ext := user.External("peer.example.com")
		if err := users.Put(ctx, ext); !errors.Is(err, domain.ErrObjectNotInternal) {
			t.Errorf("Put(external) error = %v, want ErrObjectNotInternal", err)
		}

		if err := users.Delete(ctx, "u_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := users.Get(ctx, "u_abc"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("Get() after delete error = %v", err)
		}
		if _, err := users.GetByUsername(ctx, "alice"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("GetByUsername() after delete error = %v", err)
		}
	})
}

func TestStore_Worlds(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		worlds := store.Worlds()

		world := &domain.World{
			ID:       "w_abc",
			Title:    "Plaza",
			OwnerIDs: "u_abc@::",
			Tags:     []string{},
			Capacity: 24,
			Internal: true,
		}
		if err := worlds.Put(ctx, world); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := worlds.Get(ctx, "w_abc")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "Plaza" || got.Capacity != 24 || !got.Internal {
			t.Errorf("Get() = %+v", got)
		}

		if _, err := worlds.Get(ctx, "w_missing"); !errors.Is(err, domain.ErrWorldNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrWorldNotFound", err)
		}
		if err := worlds.Delete(ctx, "w_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := worlds.Get(ctx, "w_abc"); !errors.Is(err, domain.ErrWorldNotFound) {
			t.Errorf("Get() after delete error = %v", err)
		}
	})
}

func TestStore_Instances(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		instances := store.Instances()

		instance := &domain.Instance{
			ID:       "i_abc",
			Name:     "plaza-1",
			WorldIDs: "w_abc@::",
			Capacity: 8,
			Tags:     []string{},
			Internal: true,
		}
		if err := instances.Put(ctx, instance); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		byName, err := instances.GetByName(ctx, "plaza-1")
		if err != nil {
			t.Fatalf("GetByName() error = %v", err)
		}
		if byName.ID != "i_abc" {
			t.Errorf("GetByName() id = %q", byName.ID)
		}

		if _, err := instances.GetByName(ctx, "nope"); !errors.Is(err, domain.ErrInstanceNotFound) {
			t.Errorf("GetByName(missing) error = %v, want ErrInstanceNotFound", err)
		}

		if err := instances.Delete(ctx, "i_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := instances.GetByName(ctx, "plaza-1"); !errors.Is(err, domain.ErrInstanceNotFound) {
			t.Errorf("GetByName() after delete error = %v", err)
		}
	})
}

func TestStore_Sessions(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		sessions := store.Sessions()

		session := &domain.Session{
			ID:        "s_abc",
			UserID:    "u_abc",
			TokenHash: "deadbeef",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := sessions.Put(ctx, session); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := sessions.GetByTokenHash(ctx, "deadbeef")
		if err != nil {
			t.Fatalf("GetByTokenHash() error = %v", err)
		}
		if got.ID != "s_abc" || got.UserID != "u_abc" {
			t.Errorf("GetByTokenHash() = %+v", got)
		}

		if err := sessions.Delete(ctx, "s_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := sessions.GetByTokenHash(ctx, "deadbeef"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("GetByTokenHash() after delete error = %v", err)
		}
	})
}

func TestStore_Servers(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		servers := store.Servers()

		server := &domain.ServerRecord{
			ID:      "srv_abc",
			Title:   "Peer",
			Address: "peer.example.com",
			Gateways: domain.Gateways{
				HTTP: "https://peer.example.com",
				WS:   "wss://peer.example.com",
			},
			Secure:    true,
			Version:   "1.0.0",
			Challenge: "challenge-secret",
		}
		if err := servers.Put(ctx, server); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := servers.GetByAddress(ctx, "peer.example.com")
		if err != nil {
			t.Fatalf("GetByAddress() error = %v", err)
		}
		if got.ID != "srv_abc" || !got.Secure {
			t.Errorf("GetByAddress() = %+v", got)
		}
		// The challenge secret survives storage, sealed or not.
		if got.Challenge != "challenge-secret" {
			t.Errorf("Challenge = %q, want round-tripped secret", got.Challenge)
		}

		if err := servers.Delete(ctx, "srv_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := servers.GetByAddress(ctx, "peer.example.com"); !errors.Is(err, domain.ErrServerNotFound) {
			t.Errorf("GetByAddress() after delete error = %v", err)
		}
	})
}

func TestStore_Integrity(t *testing.T) {
	runBackends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		integrity := store.Integrity()

		record := &domain.IntegrityRecord{
			ID:        "g_abc",
			UserIDs:   "u_abc@peer.example.com",
			Token:     "integrity-token",
			ExpiresAt: time.Now().Add(time.Minute),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := integrity.Put(ctx, record); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		byToken, err := integrity.GetByToken(ctx, "integrity-token")
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if byToken.ID != "g_abc" {
			t.Errorf("GetByToken() id = %q", byToken.ID)
		}

		active, err := integrity.GetActiveByUser(ctx, "u_abc@peer.example.com")
		if err != nil {
			t.Fatalf("GetActiveByUser() error = %v", err)
		}
		if active.ID != "g_abc" {
			t.Errorf("GetActiveByUser() id = %q", active.ID)
		}

		// An expired record is not active.
		expired := &domain.IntegrityRecord{
			ID:        "g_old",
			UserIDs:   "u_old@peer.example.com",
			Token:     "old-token",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		_ = integrity.Put(ctx, expired)
		if _, err := integrity.GetActiveByUser(ctx, "u_old@peer.example.com"); !errors.Is(err, domain.ErrIntegrityNotFound) {
			t.Errorf("GetActiveByUser(expired) error = %v, want ErrIntegrityNotFound", err)
		}

		if err := integrity.Delete(ctx, "g_abc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := integrity.GetByToken(ctx, "integrity-token"); !errors.Is(err, domain.ErrIntegrityNotFound) {
			t.Errorf("GetByToken() after delete error = %v", err)
		}
	})
}

func TestMemoryStore_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	user := &domain.User{ID: "u_abc", Username: "alice", Internal: true}
	if err := store.Users().Put(ctx, user); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Users().Get(ctx, "u_abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Display = "mutated"

	again, err := store.Users().Get(ctx, "u_abc")
	if err != nil {
		t.Fatalf("Get() again error = %v", err)
	}
	if again.Display == "mutated" {
		t.Error("reads must return copies, not shared pointers")
	}
}
