package cache

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache[string](0)
	defer cache.Close()

	tests := []struct {
		name  string
		key   string
		value string
		ttl   time.Duration
	}{
		{
			name:  "store and retrieve string",
			key:   "test-key-1",
			value: "test-value",
			ttl:   1 * time.Minute,
		},
		{
			name:  "store with short TTL",
			key:   "test-key-2",
			value: "expires-soon",
			ttl:   1 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache.Set(tt.key, tt.value, tt.ttl)

			// For short TTL test, wait for expiration
			if tt.ttl < 10*time.Millisecond {
				time.Sleep(10 * time.Millisecond)
				if _, ok := cache.Get(tt.key); ok {
					t.Error("Expected cache miss after expiration")
				}
				return
			}

			got, ok := cache.Get(tt.key)
			if !ok {
				t.Fatal("Get() missed a live entry")
			}
			if got != tt.value {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache[int](0)
	defer cache.Close()

	got, ok := cache.Get("non-existent-key")
	if ok || got != 0 {
		t.Errorf("Get() = (%v, %v), want (0, false)", got, ok)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache[string](0)
	defer cache.Close()

	key := "delete-test"
	cache.Set(key, "value", 1*time.Minute)

	if _, ok := cache.Get(key); !ok {
		t.Fatal("Get() before delete missed")
	}

	cache.Delete(key)

	if _, ok := cache.Get(key); ok {
		t.Error("Get() after delete hit")
	}
}

func TestMemoryCache_GetOrSet(t *testing.T) {
	cache := NewMemoryCache[int](0)
	defer cache.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	created := 0
	create := func() int {
		created++
		return created
	}

	if got := cache.GetOrSet("ip", time.Minute, create); got != 1 {
		t.Errorf("GetOrSet() = %d, want 1", got)
	}

	now = now.Add(50 * time.Second)
	if got := cache.GetOrSet("ip", time.Minute, create); got != 1 {
		t.Errorf("GetOrSet() = %d, want the existing value 1", got)
	}

	// access at +50s extended expiry to +110s
	now = now.Add(50 * time.Second)
	if got := cache.GetOrSet("ip", time.Minute, create); got != 1 {
		t.Errorf("GetOrSet() = %d, want 1 while still active", got)
	}

	now = now.Add(2 * time.Minute)
	if got := cache.GetOrSet("ip", time.Minute, create); got != 2 {
		t.Errorf("GetOrSet() = %d, want a fresh value 2 after idling", got)
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	cache := NewMemoryCache[string](0)
	defer cache.Close()

	cache.Set("old", "x", time.Millisecond)
	cache.Set("new", "y", time.Minute)
	time.Sleep(5 * time.Millisecond)

	cache.sweep()

	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1 after sweep", size)
	}
}

func TestMemoryCache_Size(t *testing.T) {
	cache := NewMemoryCache[int](0)
	defer cache.Close()

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 for empty cache", size)
	}

	for i := 0; i < 5; i++ {
		cache.Set(string(rune('a'+i)), i, 1*time.Minute)
	}

	if size := cache.Size(); size != 5 {
		t.Errorf("Size() = %d, want 5", size)
	}

	cache.Delete("a")

	if size := cache.Size(); size != 4 {
		t.Errorf("Size() = %d, want 4 after delete", size)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache[int](0)
	defer cache.Close()

	for i := 0; i < 5; i++ {
		cache.Set(string(rune('a'+i)), i, 1*time.Minute)
	}

	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5 before clear", size)
	}

	cache.Clear()

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if _, ok := cache.Get(key); ok {
			t.Errorf("Get(%s) after clear hit", key)
		}
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int](0)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			cache.Set(key, id, 1*time.Minute)
			if _, ok := cache.Get(key); !ok {
				t.Errorf("Concurrent Get(%s) missed", key)
			}
			cache.GetOrSet("shared", time.Minute, func() int { return id })
		}(i)
	}
	wg.Wait()

	if cache.Size() != 11 {
		t.Errorf("Size() = %d, want 11", cache.Size())
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache[int](time.Millisecond)
	cache.Close()
	cache.Close()
}
