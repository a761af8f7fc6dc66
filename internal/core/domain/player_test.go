package domain

import "testing"

func testPlayer(t *testing.T, tags ...string) *Player {
	t.Helper()
	user := &User{
		ID:       GenerateUserID(),
		Username: "tester",
		Display:  "Tester",
		Tags:     tags,
		Internal: true,
	}
	instance := &Instance{ID: GenerateInstanceID(), Name: "abc123", Internal: true}
	return NewPlayer(instance, "c_test", user, "avr.example.com")
}

func TestNewPlayer_Defaults(t *testing.T) {
	p := testPlayer(t)

	if p.Role != RoleNormal {
		t.Errorf("Role = %q, want %q", p.Role, RoleNormal)
	}
	if p.IsBot {
		t.Error("player without bot tag should not be a bot")
	}
	if p.UserIDs == "" {
		t.Error("UserIDs should be populated")
	}

	// Every default body-part path starts at the default pose.
	for _, path := range defaultTransformPaths {
		tr, ok := p.TransformAt(path)
		if !ok {
			t.Errorf("missing default transform for %q", path)
			continue
		}
		if !tr.SamePose(DefaultTransform()) {
			t.Errorf("transform at %q = %+v, want default pose", path, tr)
		}
	}
}

func TestNewPlayer_AdminRole(t *testing.T) {
	p := testPlayer(t, TagAdmin)
	if p.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", p.Role, RoleAdmin)
	}
}

func TestNewPlayer_Bot(t *testing.T) {
	p := testPlayer(t, TagBot)
	if !p.IsBot {
		t.Error("player with bot tag should be a bot")
	}
}

func TestPlayer_ApplyTransform(t *testing.T) {
	p := testPlayer(t)

	update := Transform{
		Position: Vector3{X: 1.23456789},
		Scale:    Vector3{X: 1, Y: 1, Z: 1},
		At:       100,
	}
	got, result := p.ApplyTransform("/body", update)
	if result != TransformApplied {
		t.Fatalf("result = %v, want TransformApplied", result)
	}
	if got.Position.X != 1.2345 {
		t.Errorf("stored Position.X = %v, want quantized 1.2345", got.Position.X)
	}
}

func TestPlayer_ApplyTransform_Stale(t *testing.T) {
	p := testPlayer(t)

	first := Transform{Position: Vector3{X: 1}, At: 100}
	if _, result := p.ApplyTransform("/body", first); result != TransformApplied {
		t.Fatalf("first update result = %v, want TransformApplied", result)
	}

	// Older timestamp is rejected and the stored transform stays.
	older := Transform{Position: Vector3{X: 9}, At: 50}
	got, result := p.ApplyTransform("/body", older)
	if result != TransformStale {
		t.Errorf("result = %v, want TransformStale", result)
	}
	if got.Position.X != 1 {
		t.Errorf("stored transform changed on stale update: %+v", got)
	}

	// Equal timestamp is also stale.
	if _, result := p.ApplyTransform("/body", Transform{Position: Vector3{X: 9}, At: 100}); result != TransformStale {
		t.Errorf("equal At result = %v, want TransformStale", result)
	}
}

func TestPlayer_ApplyTransform_Unchanged(t *testing.T) {
	p := testPlayer(t)

	pose := Transform{Position: Vector3{X: 1.5}, At: 100}
	if _, result := p.ApplyTransform("/body", pose); result != TransformApplied {
		t.Fatal("first update should apply")
	}

	// Same pose with a newer timestamp is suppressed but the timestamp
	// still advances.
	pose.At = 200
	if _, result := p.ApplyTransform("/body", pose); result != TransformUnchanged {
		t.Errorf("result = %v, want TransformUnchanged", result)
	}
	stored, _ := p.TransformAt("/body")
	if stored.At != 200 {
		t.Errorf("stored At = %d, want 200 after no-op update", stored.At)
	}

	// A replay at the old timestamp is now stale.
	pose.At = 150
	if _, result := p.ApplyTransform("/body", pose); result != TransformStale {
		t.Errorf("replay result = %v, want TransformStale", result)
	}
}

func TestPlayer_ApplyTransform_NewPath(t *testing.T) {
	p := testPlayer(t)

	// Paths outside the defaults are created on first update.
	update := Transform{Position: Vector3{X: 2}, At: 10}
	if _, result := p.ApplyTransform("/body/left_foot", update); result != TransformApplied {
		t.Errorf("new path result = %v, want TransformApplied", result)
	}
	if _, ok := p.TransformAt("/body/left_foot"); !ok {
		t.Error("new path should be stored")
	}
}

func TestPlayer_Transforms_Copy(t *testing.T) {
	p := testPlayer(t)
	snapshot := p.Transforms()
	snapshot["/body"] = Transform{At: 999}

	stored, _ := p.TransformAt("/body")
	if stored.At == 999 {
		t.Error("Transforms() should return a copy")
	}
}

func TestQuitReason_String(t *testing.T) {
	tests := []struct {
		reason QuitReason
		want   string
	}{
		{QuitKicked, "kicked"},
		{QuitBanned, "banned"},
		{QuitClosed, "closed"},
		{QuitDisconnected, "disconnected"},
		{QuitReason(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("QuitReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
