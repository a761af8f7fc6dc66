package socketserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/storage"
)

// fakeTransport records outbound frames and serves queued inbound
// frames, then reports EOF.
type fakeTransport struct {
	mu      sync.Mutex
	inbound [][]byte
	frames  []*Message
	closed  bool
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return 0, nil, io.EOF
	}
	data := f.inbound[0]
	f.inbound = f.inbound[1:]
	return textMessage, data, nil
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, &msg)
	return nil
}

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) sent() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Message, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// testRig wires the socket server against the in-memory store with no
// outbound network.
type testRig struct {
	server    *Server
	users     *service.UserService
	worlds    *service.WorldService
	instances *service.InstanceService
	auth      *service.AuthService
	connSeq   int
	instSeq   int
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

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
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected outbound request: %s %s", r.Method, r.URL)
		return nil, nil
	})
	client := federation.NewClient(store.Servers(), self.Address, nil, nil).
		WithHTTPClient(&http.Client{Transport: rt})
	registry := federation.NewRegistry(store.Servers(), client, self, nil)

	users := service.NewUserService(store.Users(), registry, client, nil, nil)
	worlds := service.NewWorldService(store.Worlds(), registry, client, nil, nil)
	instances := service.NewInstanceService(store.Instances(), worlds, registry, client, nil, nil)
	sessions := service.NewSessionService(store.Sessions(), 0, nil)
	integrity := service.NewIntegrityService(store.Integrity(), users, registry, client, nil, 0, nil, nil)
	auth := service.NewAuthService(users, sessions, integrity, nil)

	return &testRig{
		server:    New(auth, instances, registry, nil, nil),
		users:     users,
		worlds:    worlds,
		instances: instances,
		auth:      auth,
	}
}

// login creates an account and returns a live session token.
func (r *testRig) login(t *testing.T, username string, tags ...string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := r.users.Create(ctx, username, "password-"+username, username, tags); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	_, _, plaintext, err := r.auth.Login(ctx, username, "password-"+username)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", username, err)
	}
	return plaintext
}

// makeInstance creates a world and an instance with the given
// capacity, zero meaning the default.
func (r *testRig) makeInstance(t *testing.T, capacity int) *domain.Instance {
	t.Helper()
	ctx := context.Background()
	r.instSeq++
	username := fmt.Sprintf("creator%d", r.instSeq)
	creator, err := r.users.Create(ctx, username, "password-"+username, "Creator",
		[]string{domain.TagWorldCreator, domain.TagInstanceCreator})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	actor := service.ActorFor(creator)
	world, err := r.worlds.Create(ctx, actor, "Plaza", "", capacity, nil)
	if err != nil {
		t.Fatalf("Create(world) error = %v", err)
	}
	instance, err := r.instances.Create(ctx, actor, world.ID, "", "Plaza One", 0, nil)
	if err != nil {
		t.Fatalf("Create(instance) error = %v", err)
	}
	return instance
}

func (r *testRig) connect() (*Connection, *fakeTransport) {
	ft := &fakeTransport{}
	r.connSeq++
	return newConnection(fmt.Sprintf("c_test_%d", r.connSeq), ft), ft
}

// send marshals a payload and dispatches it as one inbound frame.
func (r *testRig) send(t *testing.T, conn *Connection, command string, data any, state string) {
	t.Helper()
	msg, err := newMessage(command, data, state)
	if err != nil {
		t.Fatalf("newMessage(%s) error = %v", command, err)
	}
	r.server.dispatch(context.Background(), conn, msg)
}

// sendInstance dispatches a nested instance-scoped frame.
func (r *testRig) sendInstance(t *testing.T, conn *Connection, instanceID, command string, data any, state string) {
	t.Helper()
	inner, err := newMessage(command, data, "")
	if err != nil {
		t.Fatalf("newMessage(%s) error = %v", command, err)
	}
	r.send(t, conn, instanceID, inner, state)
}

// authenticated opens a connection and binds a fresh user to it.
func (r *testRig) authenticated(t *testing.T, username string, tags ...string) (*Connection, *fakeTransport) {
	t.Helper()
	token := r.login(t, username, tags...)
	conn, ft := r.connect()
	r.send(t, conn, CommandAuthenticate, authenticatePayload{Token: token}, "")
	if conn.User() == nil {
		t.Fatalf("authentication failed: %+v", ft.sent())
	}
	ft.reset()
	return conn, ft
}

func lastFrame(t *testing.T, ft *fakeTransport) *Message {
	t.Helper()
	frames := ft.sent()
	if len(frames) == 0 {
		t.Fatal("no frames sent")
	}
	return frames[len(frames)-1]
}

func decodePayload(t *testing.T, msg *Message, out any) {
	t.Helper()
	if len(msg.Data) == 0 {
		t.Fatalf("frame %q has no data", msg.Command)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		t.Fatalf("failed to parse %q data %q: %v", msg.Command, msg.Data, err)
	}
}

// requireError asserts the frame is an error envelope with the given
// code.
func requireError(t *testing.T, msg *Message, want *domain.ErrorMessage) {
	t.Helper()
	if msg.Command != CommandError {
		t.Fatalf("frame command = %q, want %q (data %s)", msg.Command, CommandError, msg.Data)
	}
	var em domain.ErrorMessage
	decodePayload(t, msg, &em)
	if em.Code != want.Code {
		t.Errorf("error code = %d, want %d (%s)", em.Code, want.Code, em.Message)
	}
}

// unwrapInstance asserts an outer frame addresses the instance and
// returns the nested envelope.
func unwrapInstance(t *testing.T, msg *Message, instanceID string) *Message {
	t.Helper()
	if msg.Command != instanceID {
		t.Fatalf("outer command = %q, want instance id %q", msg.Command, instanceID)
	}
	var inner Message
	decodePayload(t, msg, &inner)
	return &inner
}

func TestPing(t *testing.T) {
	rig := newTestRig(t)
	conn, ft := rig.connect()

	rig.send(t, conn, CommandPing, nil, "s1")

	frame := lastFrame(t, ft)
	if frame.Command != CommandPing {
		t.Errorf("command = %q, want %q", frame.Command, CommandPing)
	}
	if frame.State != "s1" {
		t.Errorf("state = %q, want s1", frame.State)
	}
	var pong pingPayload
	decodePayload(t, frame, &pong)
	if pong.Time <= 0 {
		t.Errorf("ping time = %d, want > 0", pong.Time)
	}
}

func TestAuthenticate_Session(t *testing.T) {
	rig := newTestRig(t)
	token := rig.login(t, "alice")
	conn, ft := rig.connect()

	rig.send(t, conn, CommandAuthenticate, authenticatePayload{Token: token}, "s7")

	user := conn.User()
	if user == nil {
		t.Fatalf("connection has no user after authenticate: %+v", ft.sent())
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}

	frame := lastFrame(t, ft)
	if frame.Command != CommandAuthenticate {
		t.Fatalf("command = %q, want %q", frame.Command, CommandAuthenticate)
	}
	if frame.State != "s7" {
		t.Errorf("state = %q, want s7", frame.State)
	}
	var ack authenticatedPayload
	decodePayload(t, frame, &ack)
	if ack.User != user.ID+"@avr.example.com" {
		t.Errorf("ack user = %q, want %q", ack.User, user.ID+"@avr.example.com")
	}
	if ack.Server != "avr.example.com" {
		t.Errorf("ack server = %q, want avr.example.com", ack.Server)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	rig := newTestRig(t)
	token := rig.login(t, "alice")

	tests := []struct {
		name    string
		payload any
		want    *domain.ErrorMessage
	}{
		{
			name:    "no data",
			payload: nil,
			want:    domain.ErrAuthInvalidInput,
		},
		{
			name:    "both tokens",
			payload: authenticatePayload{Token: token, Integrity: "x"},
			want:    domain.ErrAuthInvalidInput,
		},
		{
			name:    "neither token",
			payload: authenticatePayload{},
			want:    domain.ErrAuthInvalidInput,
		},
		{
			name:    "bad session token",
			payload: authenticatePayload{Token: "tok_bogus"},
			want:    domain.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, ft := rig.connect()
			rig.send(t, conn, CommandAuthenticate, tt.payload, "s1")
			if conn.User() != nil {
				t.Error("connection authenticated despite failure")
			}
			frame := lastFrame(t, ft)
			requireError(t, frame, tt.want)
			if frame.State != "s1" {
				t.Errorf("state = %q, want s1", frame.State)
			}
		})
	}
}

func TestDispatch_UnknownCommands(t *testing.T) {
	rig := newTestRig(t)
	conn, ft := rig.connect()

	// Unknown outer command without a nested envelope.
	rig.send(t, conn, "bogus", nil, "s1")
	requireError(t, lastFrame(t, ft), domain.ErrRequestNotFound)

	// Nested envelope with an unknown inner command.
	ft.reset()
	rig.sendInstance(t, conn, "i_unknown", "bogus", nil, "s2")
	requireError(t, lastFrame(t, ft), domain.ErrRequestNotFound)
}

func TestReadLoop_InvalidFrame(t *testing.T) {
	rig := newTestRig(t)
	conn, ft := rig.connect()
	ft.inbound = [][]byte{[]byte("{not json")}

	rig.server.readLoop(context.Background(), conn)

	if !ft.isClosed() {
		t.Error("transport not closed after read loop exit")
	}
	requireError(t, lastFrame(t, ft), domain.ErrUserInvalidInput)
}
