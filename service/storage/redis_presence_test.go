package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis is an in-memory stand-in for the three commands the mirror uses.
type fakeRedis struct {
	mu   sync.Mutex
	kv   map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{kv: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.kv[k]; ok {
			delete(f.kv, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPresenceMirror(t *testing.T) {
	rdb := newFakeRedis()
	m := NewPresenceMirror(rdb, "node-1", time.Hour, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	defer func() {
		cancel()
		<-m.Done()
	}()

	m.Online("alice")
	waitFor(t, func() bool {
		_, ok, _ := m.Lookup(ctx, "alice")
		return ok
	})
	node, _, _ := m.Lookup(ctx, "alice")
	if node != "node-1" {
		t.Errorf("node = %q", node)
	}
	if rdb.ttls[presenceKey("alice")] != time.Hour {
		t.Errorf("ttl = %v", rdb.ttls[presenceKey("alice")])
	}

	// online then offline in quick succession must end offline
	m.Online("bob")
	m.Offline("bob")
	waitFor(t, func() bool {
		_, ok, _ := m.LastSeen(ctx, "bob")
		return ok
	})
	if _, ok, _ := m.Lookup(ctx, "bob"); ok {
		t.Error("bob should be offline")
	}
	seen, _, err := m.LastSeen(ctx, "bob")
	if err != nil || time.Since(seen) > time.Minute {
		t.Errorf("last seen = %v, %v", seen, err)
	}

	if _, ok, err := m.LastSeen(ctx, "nobody"); ok || err != nil {
		t.Errorf("unknown user: %v %v", ok, err)
	}
}

func TestPresenceMirrorDropsWhenFull(t *testing.T) {
	m := NewPresenceMirror(newFakeRedis(), "n", 0, 1)
	// no worker running: the second event must not block
	m.Online("a")
	m.Online("b")
	if len(m.events) != 1 {
		t.Errorf("queued = %d, want 1", len(m.events))
	}
}
