package command

import (
	"context"
	"testing"
	"time"

	"github.com/fveres/dstui/internal/synology"
)

type controllerCall struct {
	action Action
	id     string
	reply  chan error
}

// gatedController blocks every call until the test answers it, which
// makes ordering between dispatched actions observable.
type gatedController struct {
	calls chan controllerCall
}

func newGatedController() *gatedController {
	return &gatedController{calls: make(chan controllerCall)}
}

func (c *gatedController) invoke(ctx context.Context, action Action, id string) error {
	call := controllerCall{action: action, id: id, reply: make(chan error)}
	select {
	case c.calls <- call:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-call.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *gatedController) Pause(ctx context.Context, id string) error {
	return c.invoke(ctx, ActionPause, id)
}

func (c *gatedController) Resume(ctx context.Context, id string) error {
	return c.invoke(ctx, ActionResume, id)
}

func (c *gatedController) Delete(ctx context.Context, id string) error {
	return c.invoke(ctx, ActionDelete, id)
}

func (c *gatedController) expectCall(t *testing.T) controllerCall {
	t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a controller call")
		return controllerCall{}
	}
}

func readOutcome(t *testing.T, r *Runner) Outcome {
	t.Helper()
	select {
	case out := <-r.Outcomes():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outcome")
		return Outcome{}
	}
}

func TestSameTaskActionsRunInDispatchOrder(t *testing.T) {
	ctrl := newGatedController()
	r := NewRunner(ctrl)
	ctx := context.Background()

	r.Dispatch(ctx, ActionPause, "dbid_1")
	first := ctrl.expectCall(t)
	if first.action != ActionPause {
		t.Fatalf("first call = %v, want pause", first.action)
	}

	// The resume must wait for the in-flight pause on the same id.
	r.Dispatch(ctx, ActionResume, "dbid_1")
	select {
	case call := <-ctrl.calls:
		t.Fatalf("%v on %s dispatched while pause still in flight", call.action, call.id)
	case <-time.After(100 * time.Millisecond):
	}

	first.reply <- nil
	out := readOutcome(t, r)
	if out.Action != ActionPause || out.Err != nil {
		t.Fatalf("unexpected first outcome: %+v", out)
	}

	second := ctrl.expectCall(t)
	if second.action != ActionResume || second.id != "dbid_1" {
		t.Fatalf("second call = %v on %s, want resume on dbid_1", second.action, second.id)
	}
	second.reply <- nil
	out = readOutcome(t, r)
	if out.Action != ActionResume || out.Err != nil {
		t.Fatalf("unexpected second outcome: %+v", out)
	}
}

func TestDistinctTasksRunConcurrently(t *testing.T) {
	ctrl := newGatedController()
	r := NewRunner(ctrl)
	ctx := context.Background()

	r.Dispatch(ctx, ActionPause, "dbid_1")
	r.Dispatch(ctx, ActionPause, "dbid_2")

	// Both calls are in flight before either resolves.
	a := ctrl.expectCall(t)
	b := ctrl.expectCall(t)
	if a.id == b.id {
		t.Fatalf("both calls hit %s; want distinct ids in flight", a.id)
	}

	a.reply <- nil
	b.reply <- nil
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[readOutcome(t, r).TaskID] = true
	}
	if !seen["dbid_1"] || !seen["dbid_2"] {
		t.Fatalf("outcomes missing a task id: %v", seen)
	}
}

func TestOutcomeCarriesTaskError(t *testing.T) {
	ctrl := newGatedController()
	r := NewRunner(ctrl)

	r.Dispatch(context.Background(), ActionDelete, "dbid_7")
	call := ctrl.expectCall(t)
	call.reply <- synology.NewTaskError(404)

	out := readOutcome(t, r)
	if out.TaskID != "dbid_7" || out.Action != ActionDelete {
		t.Fatalf("unexpected outcome routing: %+v", out)
	}
	if !synology.IsNotFound(out.Err) {
		t.Fatalf("expected a not-found error, got %v", out.Err)
	}
}

func TestQueueDrainsAfterIdle(t *testing.T) {
	ctrl := newGatedController()
	r := NewRunner(ctrl)
	ctx := context.Background()

	// Two rounds on the same id with the queue emptying in between,
	// exercising the drain goroutine handoff.
	for i := 0; i < 2; i++ {
		r.Dispatch(ctx, ActionPause, "dbid_3")
		call := ctrl.expectCall(t)
		call.reply <- nil
		if out := readOutcome(t, r); out.Err != nil {
			t.Fatalf("round %d: unexpected error %v", i, out.Err)
		}
	}
}
