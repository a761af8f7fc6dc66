package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Get() miss after Set()")
	}
	if got != "value" {
		t.Errorf("Get() = %v, want %q", got, "value")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should miss for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(time.Minute)

	c.SetTTL("key", "value", 10*time.Millisecond)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("entry should be readable before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Error("entry should expire")
	}
	// Lazy eviction removed the entry on read.
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired read, want 0", c.Len())
	}
}

func TestCache_SetPreservesCreatedAt(t *testing.T) {
	c := New(time.Minute)

	first := c.Set("key", 1)
	time.Sleep(5 * time.Millisecond)
	second := c.Set("key", 2)

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("overwrite should keep the original CreatedAt")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("overwrite should refresh UpdatedAt")
	}
}

func TestGetAs(t *testing.T) {
	c := New(time.Minute)
	c.Set("key", 42)

	if v, ok := GetAs[int](c, "key"); !ok || v != 42 {
		t.Errorf("GetAs[int]() = %v, %v, want 42, true", v, ok)
	}
	// Wrong type is a miss, not a panic.
	if _, ok := GetAs[string](c, "key"); ok {
		t.Error("GetAs[string]() should miss on an int entry")
	}
}

func TestCache_Resolve(t *testing.T) {
	c := New(time.Minute)

	var calls int32
	fill := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "filled", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Resolve("key", fill)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if v != "filled" {
			t.Errorf("Resolve() = %v, want %q", v, "filled")
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fill called %d times, want 1", n)
	}
}

func TestCache_Resolve_ErrorNotMemoized(t *testing.T) {
	c := New(time.Minute)

	boom := errors.New("boom")
	var calls int32
	fill := func() (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	if _, err := c.Resolve("key", fill); !errors.Is(err, boom) {
		t.Fatalf("first Resolve() error = %v, want boom", err)
	}
	v, err := c.Resolve("key", fill)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("second Resolve() = %v, want retry after error", v)
	}
}

func TestCache_Resolve_Collapses(t *testing.T) {
	c := New(time.Minute)

	var calls int32
	release := make(chan struct{})
	fill := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]any, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Resolve("key", fill)
		}(i)
	}

	// Let the goroutines pile up on the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fill called %d times, want 1", n)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("waiter %d got %v, want %q", i, r, "shared")
		}
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(time.Minute)

	c.SetTTL("short", 1, 5*time.Millisecond)
	c.Set("long", 2)
	time.Sleep(10 * time.Millisecond)

	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry should survive the sweep")
	}
}

func TestCache_StartSweep(t *testing.T) {
	c := New(time.Minute)
	c.SetTTL("short", 1, time.Millisecond)
	c.Set("long", 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartSweep(ctx, 2*time.Millisecond)

	deadline := time.After(time.Second)
	for c.Len() != 1 {
		select {
		case <-deadline:
			t.Fatal("expired entry never swept")
		case <-time.After(2 * time.Millisecond):
		}
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry should survive the sweeper")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	c.Set("key", 1)
	c.Delete("key")
	if _, ok := c.Get("key"); ok {
		t.Error("Get() should miss after Delete()")
	}
}
