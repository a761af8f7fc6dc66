package service

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/storage"
)

// roundTripFunc answers outbound federation requests in-process.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func noNetwork(t *testing.T) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected outbound request: %s %s", r.Method, r.URL)
		return nil, nil
	}
}

// testEnv wires every service against the in-memory store and a fake
// federation transport.
type testEnv struct {
	store     storage.Store
	registry  *federation.Registry
	client    *federation.Client
	users     *UserService
	worlds    *WorldService
	instances *InstanceService
	sessions  *SessionService
	integrity *IntegrityService
	auth      *AuthService
}

func newTestEnv(t *testing.T, rt roundTripFunc) *testEnv {
	t.Helper()
	if rt == nil {
		rt = noNetwork(t)
	}

	store := storage.NewMemoryStore()
	self := &domain.ServerRecord{
		ID:      "srv_self",
		Title:   "Test Node",
		Address: "avr.example.com",
		Gateways: domain.Gateways{
			HTTP: "https://avr.example.com",
			WS:   "wss://avr.example.com",
		},
		Version:  "1.0.0",
		Internal: true,
	}
	client := federation.NewClient(store.Servers(), self.Address, nil, nil).
		WithHTTPClient(&http.Client{Transport: rt})
	registry := federation.NewRegistry(store.Servers(), client, self, nil)

	env := &testEnv{store: store, registry: registry, client: client}
	env.users = NewUserService(store.Users(), registry, client, nil, nil)
	env.worlds = NewWorldService(store.Worlds(), registry, client, nil, nil)
	env.instances = NewInstanceService(store.Instances(), env.worlds, registry, client, nil, nil)
	env.sessions = NewSessionService(store.Sessions(), 0, nil)
	env.integrity = NewIntegrityService(store.Integrity(), env.users, registry, client, nil, 0, nil, nil)
	env.auth = NewAuthService(env.users, env.sessions, env.integrity, nil)
	return env
}

// addPeer persists a known peer so resolutions skip discovery.
func (e *testEnv) addPeer(t *testing.T, address string) *domain.ServerRecord {
	t.Helper()
	peer := &domain.ServerRecord{
		ID:      "srv_" + address,
		Title:   "Peer " + address,
		Address: address,
		Gateways: domain.Gateways{
			HTTP: "https://" + address,
			WS:   "wss://" + address,
		},
		Version: "1.0.0",
	}
	if err := e.store.Servers().Put(context.Background(), peer); err != nil {
		t.Fatalf("Put(peer) error = %v", err)
	}
	return peer
}

// addUser creates a local account with the given tags.
func (e *testEnv) addUser(t *testing.T, username string, tags ...string) *domain.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), username, "password-"+username, username, tags)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return user
}

// envelopeJSON is a minimal success envelope body for fake peers.
func envelopeJSON(request, data string) string {
	return `{"request":"` + request + `","time":1,"data":` + data + `}`
}
