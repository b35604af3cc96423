package cache

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params url.Values
		want   string
	}{
		{
			name: "no params",
			path: "/api/v1/core/models",
			want: "/api/v1/core/models",
		},
		{
			name:   "params sorted and encoded",
			path:   "/api/v1/datasets/",
			params: url.Values{"page": {"1"}, "limit": {"100"}},
			want:   "/api/v1/datasets/?limit=100&page=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.path, tt.params); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if string(val) != "v" {
		t.Errorf("value = %q, want %q", val, "v")
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get after Delete reported a hit")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get returned an expired entry")
	}

	if removed := m.Prune(); removed != 1 {
		t.Errorf("Prune removed %d entries, want 1", removed)
	}
}
