package command

import (
	"context"
	"sync"

	"github.com/fveres/dstui/internal/logging"
)

// Action identifies a task control operation.
type Action int

const (
	ActionPause Action = iota
	ActionResume
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Outcome is the result of one dispatched action, delivered on the
// runner's outcome channel once the server has answered.
type Outcome struct {
	TaskID string
	Action Action
	Err    error
}

// TaskController is the slice of the API client the runner drives.
type TaskController interface {
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type request struct {
	ctx    context.Context
	action Action
	id     string
}

// Runner executes task actions off the UI goroutine. Actions against the
// same task id run strictly in dispatch order; actions against different
// ids run concurrently. A pause immediately followed by a resume on one
// task therefore applies both, in that order, rather than racing.
type Runner struct {
	client   TaskController
	outcomes chan Outcome

	mu      sync.Mutex
	pending map[string][]request
}

func NewRunner(client TaskController) *Runner {
	return &Runner{
		client:   client,
		outcomes: make(chan Outcome, 16),
		pending:  make(map[string][]request),
	}
}

// Outcomes returns the channel on which results are delivered.
func (r *Runner) Outcomes() <-chan Outcome {
	return r.outcomes
}

// Dispatch queues an action for the given task and returns immediately.
// The outcome arrives later on the Outcomes channel.
func (r *Runner) Dispatch(ctx context.Context, action Action, id string) {
	r.mu.Lock()
	_, running := r.pending[id]
	r.pending[id] = append(r.pending[id], request{ctx: ctx, action: action, id: id})
	r.mu.Unlock()

	if !running {
		go r.drain(id)
	}
}

// drain processes the queue for one task id until it is empty. The map
// entry is removed under the lock, so a Dispatch racing with the final
// pop either lands on the still-live queue or starts a new drain.
func (r *Runner) drain(id string) {
	for {
		r.mu.Lock()
		queue := r.pending[id]
		if len(queue) == 0 {
			delete(r.pending, id)
			r.mu.Unlock()
			return
		}
		req := queue[0]
		r.pending[id] = queue[1:]
		r.mu.Unlock()

		err := r.run(req)
		logging.LogTaskAction(req.action.String(), req.id, err)
		r.outcomes <- Outcome{TaskID: req.id, Action: req.action, Err: err}
	}
}

func (r *Runner) run(req request) error {
	switch req.action {
	case ActionPause:
		return r.client.Pause(req.ctx, req.id)
	case ActionResume:
		return r.client.Resume(req.ctx, req.id)
	case ActionDelete:
		return r.client.Delete(req.ctx, req.id)
	default:
		return nil
	}
}
