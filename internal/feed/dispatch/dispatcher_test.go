package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/listener"
)

// =============================================================================
// Mock Listener
// =============================================================================

type recordingListener struct {
	listener.Base
	name    string
	journal *journal
	fail    error
	panics  bool
	reject  bool
}

type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, s)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (l *recordingListener) Accepts(event *domain.Event, identity string) bool {
	if l.reject {
		return false
	}
	return l.Base.Accepts(event, identity)
}

func (l *recordingListener) OnMessageSent(ctx context.Context, e *domain.Event) error {
	l.journal.add(l.name + ":sent:" + e.ID)
	if l.panics {
		panic("boom")
	}
	return l.fail
}

func (l *recordingListener) OnRoomCreated(ctx context.Context, e *domain.Event) error {
	l.journal.add(l.name + ":room:" + e.ID)
	return l.fail
}

func event(id string, t domain.EventType) *domain.Event {
	return &domain.Event{
		ID:   id,
		Type: string(t),
		Initiator: &domain.Initiator{
			User: &domain.User{Username: "alice"},
		},
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestDispatchBatch_OrderFollowsSubscription(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	for _, name := range []string{"first", "second", "third"} {
		reg.Subscribe(&recordingListener{name: name, journal: j})
	}

	d := NewDispatcher(reg, nil)
	stats := d.DispatchBatch(context.Background(), []*domain.Event{event("e1", domain.EventTypeMessageSent)}, "bot")

	want := []string{"first:sent:e1", "second:sent:e1", "third:sent:e1"}
	got := j.all()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if stats.Invocations != 3 {
		t.Errorf("expected 3 invocations, got %d", stats.Invocations)
	}
}

func TestDispatchBatch_RoutesByType(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	reg.Subscribe(&recordingListener{name: "l", journal: j})

	d := NewDispatcher(reg, nil)
	d.DispatchBatch(context.Background(), []*domain.Event{
		event("e1", domain.EventTypeRoomCreated),
		event("e2", domain.EventTypeMessageSent),
		event("e3", domain.EventTypeUserLeftRoom), // handled by the embedded no-op
	}, "bot")

	got := j.all()
	if len(got) != 2 || got[0] != "l:room:e1" || got[1] != "l:sent:e2" {
		t.Errorf("unexpected calls: %v", got)
	}
}

func TestDispatchBatch_SkipsUntypedAndUnknown(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	reg.Subscribe(&recordingListener{name: "l", journal: j})

	d := NewDispatcher(reg, nil)
	stats := d.DispatchBatch(context.Background(), []*domain.Event{
		nil,
		{ID: "no-type"},
		{ID: "future", Type: "HOLOGRAMSENT"},
	}, "bot")

	if calls := j.all(); len(calls) != 0 {
		t.Errorf("expected no listener calls, got %v", calls)
	}
	if stats.Skipped != 3 {
		t.Errorf("expected 3 skipped events, got %d", stats.Skipped)
	}
}

func TestDispatchBatch_FailureIsolation(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	reg.Subscribe(&recordingListener{name: "failing", journal: j, fail: errors.New("handler error")})
	reg.Subscribe(&recordingListener{name: "panicking", journal: j, panics: true})
	reg.Subscribe(&recordingListener{name: "healthy", journal: j})

	d := NewDispatcher(reg, nil)
	stats := d.DispatchBatch(context.Background(), []*domain.Event{
		event("e1", domain.EventTypeMessageSent),
		event("e2", domain.EventTypeMessageSent),
	}, "bot")

	got := j.all()
	want := []string{
		"failing:sent:e1", "panicking:sent:e1", "healthy:sent:e1",
		"failing:sent:e2", "panicking:sent:e2", "healthy:sent:e2",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if stats.Failures != 4 {
		t.Errorf("expected 4 failures, got %d", stats.Failures)
	}
}

func TestDispatchBatch_AcceptancePredicate(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	reg.Subscribe(&recordingListener{name: "picky", journal: j, reject: true})
	reg.Subscribe(&recordingListener{name: "open", journal: j})

	d := NewDispatcher(reg, nil)
	own := event("own", domain.EventTypeMessageSent)
	own.Initiator.User.Username = "bot"

	stats := d.DispatchBatch(context.Background(), []*domain.Event{own, event("e1", domain.EventTypeMessageSent)}, "bot")

	got := j.all()
	if len(got) != 1 || got[0] != "open:sent:e1" {
		t.Errorf("unexpected calls: %v", got)
	}
	if stats.Invocations != 1 {
		t.Errorf("expected 1 invocation, got %d", stats.Invocations)
	}
}

func TestDispatchBatch_ConcurrentSubscriptions(t *testing.T) {
	j := &journal{}
	reg := listener.NewRegistry()
	stable := &recordingListener{name: "stable", journal: &journal{}}
	reg.Subscribe(stable)

	d := NewDispatcher(reg, nil)

	const passes = 100
	const churners = 8

	var wg sync.WaitGroup
	for c := 0; c < churners; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < passes; i++ {
				l := &recordingListener{name: "tmp", journal: j}
				reg.Subscribe(l)
				reg.Unsubscribe(l)
			}
		}()
	}

	for i := 0; i < passes; i++ {
		d.DispatchBatch(context.Background(), []*domain.Event{event("e", domain.EventTypeMessageSent)}, "bot")
	}
	wg.Wait()

	if n := len(stable.journal.all()); n != passes {
		t.Errorf("stable listener expected %d calls, got %d", passes, n)
	}
	if reg.Len() != 1 {
		t.Errorf("expected registry to hold only the stable listener, got %d", reg.Len())
	}
}

func TestRoutes_CoverEveryEventType(t *testing.T) {
	for _, et := range domain.EventTypes() {
		if _, ok := routes[et]; !ok {
			t.Errorf("no route for %s", et)
		}
	}
}
