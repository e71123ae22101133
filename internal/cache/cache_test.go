package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name   string
		run    func(c *LRUCache[string], clock *fakeClock)
		key    string
		want   string
		wantOK bool
	}{
		{
			name:   "hit",
			run:    func(c *LRUCache[string], _ *fakeClock) { c.Set("a", "1") },
			key:    "a",
			want:   "1",
			wantOK: true,
		},
		{
			name: "expired",
			run: func(c *LRUCache[string], clock *fakeClock) {
				c.Set("a", "1")
				clock.t = clock.t.Add(2 * time.Minute)
			},
			key: "a",
		},
		{
			name: "least recently used is evicted",
			run: func(c *LRUCache[string], _ *fakeClock) {
				c.Set("a", "1")
				c.Set("b", "2")
				c.Get("a")
				c.Set("c", "3")
			},
			key: "b",
		},
		{
			name: "recently read survives eviction",
			run: func(c *LRUCache[string], _ *fakeClock) {
				c.Set("a", "1")
				c.Set("b", "2")
				c.Get("a")
				c.Set("c", "3")
			},
			key:    "a",
			want:   "1",
			wantOK: true,
		},
		{
			name: "overwrite",
			run: func(c *LRUCache[string], _ *fakeClock) {
				c.Set("a", "1")
				c.Set("a", "2")
			},
			key:    "a",
			want:   "2",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock := newTestLRU(2, time.Minute)
			tt.run(c, clock)
			got, ok := c.Get(tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Get(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("analytics:u1:dashboard", "x")
	c.Set("analytics:u1:purchases", "y")
	c.Set("analytics:u2:dashboard", "z")

	if n := c.DeletePrefix("analytics:u1:"); n != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
	if _, ok := c.Get("analytics:u2:dashboard"); !ok {
		t.Fatal("other user's entry was removed")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "2")
	clock.t = clock.t.Add(45 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("fresh entry was cleaned")
	}
}

func TestLRUCache_GetOrSet(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	calls := 0
	create := func() string { calls++; return "v" }

	c.GetOrSet("k", create)
	if got := c.GetOrSet("k", create); got != "v" || calls != 1 {
		t.Fatalf("GetOrSet = %q after %d calls, want v after 1", got, calls)
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(10, time.Minute)

	payload := []byte(`{"a":1}`)
	if err := s.Set(ctx, "analytics:u1:dashboard", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}
	payload[0] = 'X'

	got, ok, err := s.Get(ctx, "analytics:u1:dashboard")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("stored payload aliased caller buffer: %s", got)
	}

	if err := s.DeletePrefix(ctx, "analytics:u1:"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "analytics:u1:dashboard"); ok {
		t.Fatal("entry survived DeletePrefix")
	}
}

type countingCleaner struct{ calls chan struct{} }

func (c *countingCleaner) CleanExpired() int {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 1
}

func TestManager(t *testing.T) {
	m := NewManager(nil)
	cleaner := &countingCleaner{calls: make(chan struct{}, 1)}
	m.Register(cleaner)
	m.StartCleanup(5 * time.Millisecond)

	select {
	case <-cleaner.calls:
	case <-time.After(time.Second):
		t.Fatal("cleanup never ran")
	}
	m.Stop()
}
