package ids

import (
	"sync"
	"testing"
	"time"
)

func TestGeneratorUniqueAndIncreasing(t *testing.T) {
	g, err := New(Options{NodeID: 7})
	if err != nil {
		t.Fatal(err)
	}
	last := int64(0)
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
	if _, node, _ := g.Parts(last); node != 7 {
		t.Errorf("node bits = %d, want 7", node)
	}
}

func TestGeneratorClock(t *testing.T) {
	base := DefaultEpoch.Add(time.Hour)
	now := base
	g, err := New(Options{NodeID: 3, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}

	first := g.Next()
	if at, node, seq := g.Parts(first); !at.Equal(base) || node != 3 || seq != 0 {
		t.Fatalf("parts = %v %d %d", at, node, seq)
	}

	// a frozen clock spends the sequence, then borrows the next millisecond
	last := first
	for i := 0; i < maxSeq+1; i++ {
		id := g.Next()
		if id <= last {
			t.Fatalf("frozen clock: %d after %d", id, last)
		}
		last = id
	}
	if at, _, seq := g.Parts(last); !at.Equal(base.Add(time.Millisecond)) || seq != 0 {
		t.Errorf("after overflow = %v seq %d", at, seq)
	}

	// stepping back never produces a smaller id
	now = base.Add(-time.Second)
	if id := g.Next(); id <= last {
		t.Errorf("clock step back: %d after %d", id, last)
	}
}

func TestNewRejectsNode(t *testing.T) {
	for _, n := range []int64{-1, MaxNode + 1} {
		if _, err := New(Options{NodeID: n}); err == nil {
			t.Errorf("node %d accepted", n)
		}
	}
	if err := SetDefault(Options{NodeID: MaxNode + 1}); err == nil {
		t.Error("SetDefault accepted a bad node")
	}
}

func TestGenerateConcurrent(t *testing.T) {
	const workers, per = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*per)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := GenerateString()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("got %d unique ids, want %d", len(seen), workers*per)
	}
}
