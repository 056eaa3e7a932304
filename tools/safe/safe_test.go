package safe

import (
	"testing"
	"time"
)

func TestSafeGoRecovers(t *testing.T) {
	done := make(chan struct{})
	SafeGo("panicky", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestMustNotNil(t *testing.T) {
	var p *int
	cases := []struct {
		name  string
		v     any
		panic bool
	}{
		{"nil", nil, true},
		{"typed nil pointer", p, true},
		{"value", 3, false},
		{"pointer", new(int), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != c.panic {
					t.Errorf("panic = %v, want %v", r != nil, c.panic)
				}
			}()
			MustNotNil(c.v, c.name)
		})
	}
}
