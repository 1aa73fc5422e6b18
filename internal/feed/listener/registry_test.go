package listener

import (
	"sync"
	"testing"
)

type namedListener struct {
	Base
	name string
}

func TestRegistry_SubscribeOrder(t *testing.T) {
	r := NewRegistry()
	a, b, c := &namedListener{name: "a"}, &namedListener{name: "b"}, &namedListener{name: "c"}
	r.Subscribe(a)
	r.Subscribe(b)
	r.Subscribe(c)

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 listeners, got %d", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := snap[i].(*namedListener).name; got != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestRegistry_DuplicateSubscription(t *testing.T) {
	r := NewRegistry()
	a := &namedListener{name: "a"}
	r.Subscribe(a)
	r.Subscribe(a)

	if r.Len() != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", r.Len())
	}
	if !r.Unsubscribe(a) {
		t.Fatal("expected unsubscribe to find listener")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 subscription left, got %d", r.Len())
	}
}

func TestRegistry_UnsubscribeUnknown(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(&namedListener{name: "a"})
	if r.Unsubscribe(&namedListener{name: "a"}) {
		t.Error("unsubscribe must use reference equality")
	}
	r.Subscribe(nil)
	if r.Len() != 1 {
		t.Errorf("nil listener must be ignored, got %d", r.Len())
	}
}

func TestRegistry_SnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	a, b := &namedListener{name: "a"}, &namedListener{name: "b"}
	r.Subscribe(a)
	r.Subscribe(b)

	snap := r.Snapshot()
	r.Unsubscribe(a)
	r.Subscribe(&namedListener{name: "c"})

	if len(snap) != 2 || snap[0] != Listener(a) || snap[1] != Listener(b) {
		t.Errorf("snapshot changed after mutation: %v", snap)
	}
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := NewRegistry()
	stable := &namedListener{name: "stable"}
	r.Subscribe(stable)

	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l := &namedListener{name: "tmp"}
				r.Subscribe(l)
				if !r.Unsubscribe(l) {
					t.Error("listener vanished before unsubscribe")
				}
			}
		}()
	}

	// Readers iterate snapshots while writers churn.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				seen := 0
				for _, l := range r.Snapshot() {
					if l == Listener(stable) {
						seen++
					}
				}
				if seen != 1 {
					t.Errorf("stable listener seen %d times in one snapshot", seen)
				}
			}
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Errorf("expected only the stable listener to remain, got %d", r.Len())
	}
}
