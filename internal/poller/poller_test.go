package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fveres/dstui/internal/synology"
)

type listResult struct {
	tasks []synology.Task
	err   error
}

// scriptedLister hands each ListTasks call to the test through the calls
// channel; the test answers by sending a listResult on the reply channel.
type scriptedLister struct {
	calls chan chan listResult
}

func newScriptedLister() *scriptedLister {
	return &scriptedLister{calls: make(chan chan listResult)}
}

func (s *scriptedLister) ListTasks(ctx context.Context) ([]synology.Task, error) {
	reply := make(chan listResult)
	select {
	case s.calls <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.tasks, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptedLister) answer(t *testing.T, r listResult) {
	t.Helper()
	select {
	case reply := <-s.calls:
		reply <- r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a ListTasks call")
	}
}

func readSnapshot(t *testing.T, p *Poller) synology.Snapshot {
	t.Helper()
	select {
	case snap := <-p.Snapshots():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return synology.Snapshot{}
	}
}

// settle gives the run loop time to pass the post-fetch coalescing drain,
// so a RequestRefresh issued afterwards is seen as a fresh request.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

func sampleTasks(names ...string) []synology.Task {
	tasks := make([]synology.Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, synology.Task{
			ID:     "dbid_" + name,
			Name:   name,
			Status: synology.StatusDownloading,
		})
	}
	return tasks
}

func TestInitialFetchPublishesImmediately(t *testing.T) {
	lister := newScriptedLister()
	p := New(lister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	lister.answer(t, listResult{tasks: sampleTasks("ubuntu.iso", "debian.iso")})

	snap := readSnapshot(t, p)
	if snap.FetchErr != nil {
		t.Fatalf("unexpected fetch error: %v", snap.FetchErr)
	}
	if len(snap.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(snap.Tasks))
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt not set on a successful snapshot")
	}
	if p.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d, want 0", p.ConsecutiveFailures())
	}
}

func TestFailuresPreserveListThenRecover(t *testing.T) {
	lister := newScriptedLister()
	p := New(lister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	lister.answer(t, listResult{tasks: sampleTasks("movie.mkv", "album.zip")})
	good := readSnapshot(t, p)
	settle()

	timeout := synology.NewTransportError("request timed out", errors.New("context deadline exceeded"))
	for i := 1; i <= 3; i++ {
		p.RequestRefresh()
		lister.answer(t, listResult{err: timeout})

		snap := readSnapshot(t, p)
		if snap.FetchErr == nil {
			t.Fatalf("cycle %d: expected a fetch error", i)
		}
		if len(snap.Tasks) != 2 {
			t.Fatalf("cycle %d: previous task list not retained, got %d tasks", i, len(snap.Tasks))
		}
		if !snap.FetchedAt.Equal(good.FetchedAt) {
			t.Errorf("cycle %d: FetchedAt advanced on a failed fetch", i)
		}
		if p.ConsecutiveFailures() != i {
			t.Errorf("cycle %d: consecutive failures = %d, want %d", i, p.ConsecutiveFailures(), i)
		}
		settle()
	}

	if p.ConsecutiveFailures() < FailureAlertThreshold {
		t.Fatalf("failure count %d never reached the alert threshold %d",
			p.ConsecutiveFailures(), FailureAlertThreshold)
	}

	p.RequestRefresh()
	lister.answer(t, listResult{tasks: sampleTasks("photos.tar")})

	snap := readSnapshot(t, p)
	if snap.FetchErr != nil {
		t.Fatalf("fetch error not cleared after recovery: %v", snap.FetchErr)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("expected the recovered list of 1 task, got %d", len(snap.Tasks))
	}
	if p.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d after recovery, want 0", p.ConsecutiveFailures())
	}
}

func TestRefreshCoalescesWithInFlightFetch(t *testing.T) {
	lister := newScriptedLister()
	p := New(lister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Hold the initial fetch open and pile refresh requests onto it.
	select {
	case reply := <-lister.calls:
		p.RequestRefresh()
		p.RequestRefresh()
		p.RequestRefresh()
		reply <- listResult{tasks: sampleTasks("one")}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the initial fetch")
	}
	readSnapshot(t, p)

	// All three requests were satisfied by the in-flight fetch.
	select {
	case <-lister.calls:
		t.Fatal("coalesced refresh requests triggered an extra fetch")
	case <-time.After(100 * time.Millisecond):
	}

	// A request made while idle does start a new fetch.
	p.RequestRefresh()
	lister.answer(t, listResult{tasks: sampleTasks("one", "two")})
	snap := readSnapshot(t, p)
	if len(snap.Tasks) != 2 {
		t.Fatalf("expected 2 tasks after the idle refresh, got %d", len(snap.Tasks))
	}
}

func TestReaderOnlySeesLatestSnapshot(t *testing.T) {
	lister := newScriptedLister()
	p := New(lister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	lister.answer(t, listResult{tasks: sampleTasks("stale")})
	settle()

	p.RequestRefresh()
	lister.answer(t, listResult{tasks: sampleTasks("fresh", "fresher")})

	deadline := time.After(2 * time.Second)
	for {
		var snap synology.Snapshot
		select {
		case snap = <-p.Snapshots():
		case <-deadline:
			t.Fatal("never observed the latest snapshot")
		}
		if len(snap.Tasks) == 2 {
			return
		}
		if snap.Tasks[0].Name != "stale" {
			t.Fatalf("unexpected snapshot contents: %+v", snap.Tasks)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	lister := newScriptedLister()
	p := New(lister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Cancel while the initial fetch is still in flight.
	select {
	case <-lister.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the initial fetch")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
