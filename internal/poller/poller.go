package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fveres/dstui/internal/logging"
	"github.com/fveres/dstui/internal/synology"
)

// FailureAlertThreshold is the number of consecutive failed poll cycles
// after which the UI escalates its status message. Polling itself never
// stops; the operator just gets told the numbers on screen are stale.
const FailureAlertThreshold = 3

// TaskLister is the slice of the API client the poller needs. Tests
// substitute a scripted fake.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]synology.Task, error)
}

// Poller fetches the task list on a fixed interval and publishes each
// result as a full-replacement Snapshot through a single-slot latest-value
// channel. A reader that falls behind only ever sees the most recent
// snapshot; superseded ones are dropped.
type Poller struct {
	client   TaskLister
	interval time.Duration

	snapshots chan synology.Snapshot
	refresh   chan struct{}

	failures atomic.Int32

	mu   sync.Mutex
	last synology.Snapshot // most recent snapshot with a usable task list
}

// New creates a poller. Run must be started on its own goroutine.
func New(client TaskLister, interval time.Duration) *Poller {
	return &Poller{
		client:    client,
		interval:  interval,
		snapshots: make(chan synology.Snapshot, 1),
		refresh:   make(chan struct{}, 1),
	}
}

// Snapshots returns the latest-value channel the UI drains. The channel
// always holds at most one element: the newest snapshot.
func (p *Poller) Snapshots() <-chan synology.Snapshot {
	return p.snapshots
}

// RequestRefresh asks for an immediate fetch. Never blocks; a request
// made while a fetch is already in flight coalesces with it instead of
// starting a second one.
func (p *Poller) RequestRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// ConsecutiveFailures reports how many poll cycles in a row have failed
func (p *Poller) ConsecutiveFailures() int {
	return int(p.failures.Load())
}

// Run polls until the context is cancelled. The first fetch happens
// immediately so the UI has data before the first tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}

		p.fetch(ctx)
	}
}

// fetch runs one poll cycle and publishes the outcome. On failure the
// previous task list is carried into the new snapshot so the UI does not
// flash empty on a transient error.
func (p *Poller) fetch(ctx context.Context) {
	tasks, err := p.client.ListTasks(ctx)
	if ctx.Err() != nil {
		// Shutdown mid-fetch; nobody is reading anymore
		return
	}

	logging.LogPollCycle(len(tasks), err)

	p.mu.Lock()
	defer p.mu.Unlock()

	var snap synology.Snapshot
	if err != nil {
		p.failures.Add(1)
		snap = synology.Snapshot{
			Tasks:     p.last.Tasks,
			FetchedAt: p.last.FetchedAt,
			FetchErr:  err,
		}
	} else {
		p.failures.Store(0)
		snap = synology.Snapshot{
			Tasks:     tasks,
			FetchedAt: time.Now(),
		}
	}

	p.last = snap
	p.publish(snap)

	// A refresh requested while this fetch was in flight is satisfied by
	// its result; drop it rather than fetching again. This covers the
	// initial fetch as well as the ones started from the Run loop.
	select {
	case <-p.refresh:
	default:
	}
}

// publish replaces whatever the slot currently holds with snap
func (p *Poller) publish(snap synology.Snapshot) {
	for {
		select {
		case p.snapshots <- snap:
			return
		default:
			// Slot full: drop the stale snapshot and try again
			select {
			case <-p.snapshots:
			default:
			}
		}
	}
}
