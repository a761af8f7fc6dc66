package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hactazia/reileta/internal/core/domain"
)

func TestWorldService_Create(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := env.addUser(t, "creator", domain.TagWorldCreator)

	world, err := env.worlds.Create(context.Background(), ActorFor(creator), "Plaza", "A town square", 24, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !world.Internal || world.Capacity != 24 {
		t.Errorf("Create() = %+v", world)
	}
	if world.OwnerIDs != creator.Identifier().String() {
		t.Errorf("OwnerIDs = %q, want the creator", world.OwnerIDs)
	}

	if _, err := env.worlds.Create(context.Background(), ActorFor(creator), "", "", 0, nil); !errors.Is(err, domain.ErrUserInvalidInput) {
		t.Errorf("Create(no title) error = %v, want ErrUserInvalidInput", err)
	}
}

func TestWorldService_Create_Permissions(t *testing.T) {
	env := newTestEnv(t, nil)
	plain := env.addUser(t, "plain")
	admin := env.addUser(t, "admin", domain.TagAdmin)

	if _, err := env.worlds.Create(context.Background(), ActorFor(plain), "Plaza", "", 0, nil); !errors.Is(err, domain.ErrUserDontHavePermission) {
		t.Errorf("untagged Create() error = %v, want ErrUserDontHavePermission", err)
	}
	if _, err := env.worlds.Create(context.Background(), Actor{}, "Plaza", "", 0, nil); !errors.Is(err, domain.ErrUserNotLogged) {
		t.Errorf("anonymous Create() error = %v, want ErrUserNotLogged", err)
	}
	// Admins create without the tag; bypass actors too.
	if _, err := env.worlds.Create(context.Background(), ActorFor(admin), "Plaza", "", 0, nil); err != nil {
		t.Errorf("admin Create() error = %v", err)
	}
	if _, err := env.worlds.Create(context.Background(), Internal, "Seeded", "", 0, nil); err != nil {
		t.Errorf("bypass Create() error = %v", err)
	}
}

func TestInstanceService_Create(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := env.addUser(t, "creator", domain.TagWorldCreator, domain.TagInstanceCreator)

	world, err := env.worlds.Create(context.Background(), ActorFor(creator), "Plaza", "", 24, nil)
	if err != nil {
		t.Fatalf("world Create() error = %v", err)
	}

	instance, err := env.instances.Create(context.Background(), ActorFor(creator), world.ID, "", "Evening Plaza", 0, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if instance.Name == "" {
		t.Error("an omitted name should be generated")
	}
	// Zero capacity inherits the world's.
	if instance.Capacity != 24 {
		t.Errorf("Capacity = %d, want inherited 24", instance.Capacity)
	}
	if instance.WorldIDs != world.Identifier().String() {
		t.Errorf("WorldIDs = %q", instance.WorldIDs)
	}
	if instance.OwnerIDs != creator.Identifier().String() {
		t.Errorf("OwnerIDs = %q, want the creator", instance.OwnerIDs)
	}
}

func TestInstanceService_Create_Invalid(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := env.addUser(t, "creator", domain.TagWorldCreator, domain.TagInstanceCreator)
	plain := env.addUser(t, "plain")

	world, err := env.worlds.Create(context.Background(), ActorFor(creator), "Plaza", "", 0, nil)
	if err != nil {
		t.Fatalf("world Create() error = %v", err)
	}

	if _, err := env.instances.Create(context.Background(), ActorFor(creator), "", "x", "", 0, nil); !errors.Is(err, domain.ErrInstanceInvalidInput) {
		t.Errorf("Create(no world) error = %v, want ErrInstanceInvalidInput", err)
	}
	if _, err := env.instances.Create(context.Background(), ActorFor(plain), world.ID, "", "", 0, nil); !errors.Is(err, domain.ErrUserDontHavePermission) {
		t.Errorf("untagged Create() error = %v, want ErrUserDontHavePermission", err)
	}
	if _, err := env.instances.Create(context.Background(), ActorFor(creator), "w_missing", "", "", 0, nil); !errors.Is(err, domain.ErrWorldNotFound) {
		t.Errorf("Create(missing world) error = %v, want ErrWorldNotFound", err)
	}

	// Joinable names are unique.
	if _, err := env.instances.Create(context.Background(), ActorFor(creator), world.ID, "plaza-1", "", 0, nil); err != nil {
		t.Fatalf("Create(named) error = %v", err)
	}
	if _, err := env.instances.Create(context.Background(), ActorFor(creator), world.ID, "plaza-1", "", 0, nil); !errors.Is(err, domain.ErrInstanceAlreadyExists) {
		t.Errorf("Create(duplicate name) error = %v, want ErrInstanceAlreadyExists", err)
	}
}

func TestInstanceService_Resolve_ByName(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := env.addUser(t, "creator", domain.TagWorldCreator, domain.TagInstanceCreator)

	world, err := env.worlds.Create(context.Background(), ActorFor(creator), "Plaza", "", 0, nil)
	if err != nil {
		t.Fatalf("world Create() error = %v", err)
	}
	instance, err := env.instances.Create(context.Background(), ActorFor(creator), world.ID, "plaza-1", "", 0, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Instances resolve by id and by joinable name.
	byID, err := env.instances.Resolve(context.Background(), Search{ID: instance.ID}, ActorFor(creator))
	if err != nil {
		t.Fatalf("Resolve(id) error = %v", err)
	}
	byName, err := env.instances.Resolve(context.Background(), Search{ID: "plaza-1"}, ActorFor(creator))
	if err != nil {
		t.Fatalf("Resolve(name) error = %v", err)
	}
	if byID.ID != instance.ID || byName.ID != instance.ID {
		t.Errorf("Resolve() = %q / %q, want %q", byID.ID, byName.ID, instance.ID)
	}
}

func TestInstanceService_EffectiveCapacity(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := env.addUser(t, "creator", domain.TagWorldCreator, domain.TagInstanceCreator)

	// Neither instance nor world set a capacity: the default applies.
	world, err := env.worlds.Create(context.Background(), ActorFor(creator), "Plaza", "", 0, nil)
	if err != nil {
		t.Fatalf("world Create() error = %v", err)
	}
	instance, err := env.instances.Create(context.Background(), ActorFor(creator), world.ID, "", "", 0, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := instance.EffectiveCapacity(); got != domain.DefaultInstanceCapacity {
		t.Errorf("EffectiveCapacity() = %d, want %d", got, domain.DefaultInstanceCapacity)
	}
}
