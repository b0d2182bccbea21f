package utils

import (
	"errors"
	"testing"
	"time"
)

func TestCacheStoreMemoryFallback(t *testing.T) {
	store := NewCacheStore(nil)

	if _, ok := store.Get("missing"); ok {
		t.Fatal("hit on empty store")
	}

	store.Set("k", []byte("v"), time.Minute)
	got, ok := store.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("get = %q, %v", got, ok)
	}

	store.Evict("k")
	if _, ok := store.Get("k"); ok {
		t.Fatal("hit after evict")
	}
}

func TestCacheStoreExpiry(t *testing.T) {
	store := NewCacheStore(nil)
	store.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Fatal("hit after ttl expiry")
	}
}

func TestGetOrCompute(t *testing.T) {
	store := NewCacheStore(nil)
	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	got, err := store.GetOrCompute("k", time.Minute, compute)
	if err != nil || string(got) != "computed" {
		t.Fatalf("first = %q, %v", got, err)
	}
	got, err = store.GetOrCompute("k", time.Minute, compute)
	if err != nil || string(got) != "computed" {
		t.Fatalf("second = %q, %v", got, err)
	}
	if calls != 1 {
		t.Fatalf("compute ran %d times, want 1", calls)
	}

	store.Evict("k")
	if _, err := store.GetOrCompute("k", time.Minute, compute); err != nil {
		t.Fatalf("after evict: %v", err)
	}
	if calls != 2 {
		t.Fatalf("compute ran %d times after evict, want 2", calls)
	}
}

func TestGetOrComputeError(t *testing.T) {
	store := NewCacheStore(nil)
	boom := errors.New("boom")
	if _, err := store.GetOrCompute("k", time.Minute, func() ([]byte, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	// Failures are not cached.
	got, err := store.GetOrCompute("k", time.Minute, func() ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || string(got) != "ok" {
		t.Fatalf("recovery = %q, %v", got, err)
	}
}
