package chat

import (
	"reflect"
	"sync"
	"testing"
)

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry()
	c1 := &Conn{id: "1", userID: "alice"}
	c2 := &Conn{id: "2", userID: "alice"}

	if prev := r.Register("alice", c1); prev != nil {
		t.Fatalf("first register replaced %v", prev)
	}
	if prev := r.Register("alice", c2); prev != c1 {
		t.Fatalf("second register should replace c1, got %v", prev)
	}
	if got, _ := r.Lookup("alice"); got != c2 {
		t.Fatalf("Lookup = %v, want c2", got)
	}

	// stale disconnect of c1 must not evict c2
	if r.Unregister("alice", c1) {
		t.Error("Unregister(c1) reported removal")
	}
	if got, ok := r.Lookup("alice"); !ok || got != c2 {
		t.Error("c2 evicted by stale disconnect")
	}
	if !r.Unregister("alice", c2) {
		t.Error("Unregister(c2) should remove")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Error("alice still present")
	}
	if r.Register("alice", c2) != nil || r.Register("alice", c2) != nil {
		t.Error("re-registering the same conn is not a replacement")
	}
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := NewRegistry()
	for _, u := range []string{"carol", "alice", "bob"} {
		r.Register(u, &Conn{id: u, userID: u})
	}
	if got := r.Snapshot(); !reflect.DeepEqual(got, []string{"alice", "bob", "carol"}) {
		t.Errorf("Snapshot = %v", got)
	}
	if NewRegistry().Snapshot() == nil {
		t.Error("empty snapshot must be a non-nil slice so it encodes as []")
	}
}

func TestRegistryAtMostOneEntryUnderRace(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	conns := make([]*Conn, 50)
	for i := range conns {
		conns[i] = &Conn{id: string(rune('a' + i%26)), userID: "u"}
	}
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			r.Register("u", c)
		}(c)
	}
	wg.Wait()
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	cur, _ := r.Lookup("u")
	for _, c := range conns {
		if c != cur {
			r.Unregister("u", c)
		}
	}
	if got, ok := r.Lookup("u"); !ok || got != cur {
		t.Error("non-current unregisters evicted the winner")
	}
}
