package tagedit

import (
	"errors"
	"sync"

	"github.com/pbaille/kbtags/internal/async"
	"github.com/pbaille/kbtags/internal/logging"
)

var (
	// ErrEmptyName is the validation failure for a blank rename.
	ErrEmptyName = errors.New(MsgEmptyName)
	// ErrPanicked settles a remote call whose goroutine panicked.
	ErrPanicked = errors.New("remote call panicked")
)

// Pending reports the settlement of one coordinator operation. Outcomes are
// already delivered through the Notifier; Pending only lets callers observe
// when the operation has finished.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func settled(err error) *Pending {
	p := newPending()
	p.settle(err)
	return p
}

func (p *Pending) settle(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the operation has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the outcome. It is nil until Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the operation settles and returns its outcome.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// tracker runs remote calls in the background and remembers the ones still
// in flight.
type tracker struct {
	log logging.Logger

	mu   sync.Mutex
	live map[*Pending]struct{}
}

func newTracker(log logging.Logger) *tracker {
	return &tracker{log: log, live: make(map[*Pending]struct{})}
}

// run issues call on its own goroutine. Exactly one of onSuccess or onFailure
// runs after call returns; a panicking call counts as a failure.
func (t *tracker) run(name string, call func() error, onSuccess func(), onFailure func(error)) *Pending {
	p := newPending()

	t.mu.Lock()
	t.live[p] = struct{}{}
	t.mu.Unlock()

	async.Go(t.log, name, func() {
		outcome := ErrPanicked
		defer func() { t.finish(p, outcome) }()

		returned := false
		defer func() {
			if !returned {
				onFailure(ErrPanicked)
			}
		}()

		err := call()
		returned = true
		if err != nil {
			outcome = err
			onFailure(err)
			return
		}
		outcome = nil
		onSuccess()
	})

	return p
}

func (t *tracker) finish(p *Pending, err error) {
	t.mu.Lock()
	delete(t.live, p)
	t.mu.Unlock()
	p.settle(err)
}

// wait blocks until every call in flight when wait was entered has settled.
func (t *tracker) wait() {
	t.mu.Lock()
	inflight := make([]*Pending, 0, len(t.live))
	for p := range t.live {
		inflight = append(inflight, p)
	}
	t.mu.Unlock()

	for _, p := range inflight {
		<-p.done
	}
}
