package cache

import (
	"testing"
	"time"
)

func TestLRUStoreSetGetDel(t *testing.T) {
	s, err := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected miss on empty store")
	}

	s.Set("a", "1")
	if v, ok := s.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %v, %v, want 1, true", v, ok)
	}

	s.Del("a")
	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestLRUStoreNilValueNotStored(t *testing.T) {
	s, _ := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 10})
	s.Set("a", nil)
	if s.Has("a") {
		t.Fatalf("nil value should not be stored")
	}
}

func TestLRUStoreEvictsOverCapacity(t *testing.T) {
	s, _ := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 2})
	s.Set("a", "1")
	s.Set("b", "2")
	s.Set("c", "3")

	if s.Has("a") {
		t.Fatalf("expected a to be evicted as least recently used")
	}
	if !s.Has("b") || !s.Has("c") {
		t.Fatalf("expected b and c to remain")
	}
	if s.ItemCount() != 2 {
		t.Fatalf("ItemCount = %d, want 2", s.ItemCount())
	}
}

func TestLRUStoreReset(t *testing.T) {
	s, _ := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 10})
	s.Set("a", "1")
	s.Set("b", "2")
	s.Reset()
	if s.ItemCount() != 0 {
		t.Fatalf("ItemCount after Reset = %d, want 0", s.ItemCount())
	}
}

func TestLRUStoreExpires(t *testing.T) {
	s, _ := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 10, MaxAge: 10 * time.Millisecond})
	s.Set("a", "1")
	time.Sleep(30 * time.Millisecond)
	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected expired entry to be absent")
	}
}

func TestLRUStoreAccessors(t *testing.T) {
	s, _ := NewLRUStoreFactory().Create(LRUCacheOptions{Max: 5, MaxAge: time.Minute, AllowStale: true})
	if s.Max() != 5 {
		t.Fatalf("Max() = %d, want 5", s.Max())
	}
	if s.MaxAge() != time.Minute {
		t.Fatalf("MaxAge() = %v, want 1m", s.MaxAge())
	}
	if !s.AllowStale() {
		t.Fatalf("AllowStale() = false, want true")
	}
}
