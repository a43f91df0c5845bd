// Package poller implements the client-side polling loop used to track
// in-flight jobs. Progress is pull-only: the poller walks its outstanding
// set sequentially and schedules the next pass only after the current one
// finishes, so a slow status endpoint stretches the interval instead of
// stacking requests.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/resona/api/internal/model"
)

// CheckFunc fetches the current status of one job.
type CheckFunc func(ctx context.Context, jobID string) (*model.StatusResponse, error)

// Update is emitted after every successful status check.
type Update struct {
	JobID    string
	Status   *model.StatusResponse
	Terminal bool
}

// Poller tracks a set of job IDs and reconciles them on a fixed cadence.
// Check errors are tolerated: the job stays in the set and is retried on
// the next pass.
type Poller struct {
	check    CheckFunc
	interval time.Duration

	mu      sync.Mutex
	pending []string

	updates chan Update
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New(check CheckFunc, interval time.Duration) *Poller {
	p := &Poller{
		check:    check,
		interval: interval,
		updates:  make(chan Update, 16),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Track adds a job to the outstanding set and wakes an idle loop.
// Duplicates are ignored.
func (p *Poller) Track(jobID string) {
	p.mu.Lock()
	added := false
	if !lo.Contains(p.pending, jobID) {
		p.pending = append(p.pending, jobID)
		added = true
	}
	p.mu.Unlock()

	if added {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// Pending returns the jobs still being tracked, in submission order.
func (p *Poller) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pending...)
}

// Updates delivers one Update per successful check. The channel closes
// after Stop.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

// Stop terminates the loop and waits for it to wind down.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Poller) run() {
	defer close(p.done)
	defer close(p.updates)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		// With nothing outstanding the timer stays parked until the
		// next Track. No idle ticking.
		if len(p.Pending()) == 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			select {
			case <-p.stop:
				return
			case <-p.kick:
				timer.Reset(p.interval)
			}
			continue
		}

		select {
		case <-p.stop:
			return
		case <-timer.C:
		}

		p.pass()

		// Reschedule after the pass completes, never concurrently with it.
		timer.Reset(p.interval)
	}
}

func (p *Poller) pass() {
	ids := p.Pending()
	if len(ids) == 0 {
		return
	}

	var finished []string
	for _, id := range ids {
		select {
		case <-p.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.interval*4)
		status, err := p.check(ctx, id)
		cancel()
		if err != nil {
			log.Printf("[Poller] ✗ check %s: %v", id, err)
			continue
		}

		terminal := status.Status.IsTerminal()
		if terminal {
			finished = append(finished, id)
		}

		select {
		case p.updates <- Update{JobID: id, Status: status, Terminal: terminal}:
		case <-p.stop:
			return
		}
	}

	if len(finished) > 0 {
		p.mu.Lock()
		p.pending = lo.Without(p.pending, finished...)
		p.mu.Unlock()
	}
}
