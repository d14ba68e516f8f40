// Package submit sequences a deal form submission: validation, the create-deal call,
// the terminal status and the delayed reset after success. time and randomness are
// injected (Scheduler, OutcomeSource) so the whole flow can run on a virtual clock.
package submit

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/form"
)

// DefaultResetDelay is how long the success banner stays before the form resets.
const DefaultResetDelay = 2000 * time.Millisecond

// Options configures an Orchestrator. zero values use the defaults.
type Options struct {
	Scheduler  Scheduler     // RealScheduler if nil
	ResetDelay time.Duration // DefaultResetDelay if zero
	Logger     lgr.L         // lgr.NoOp if nil
}

// Orchestrator drives submissions for one form store.
type Orchestrator struct {
	store      *form.Store
	backend    Backend
	sched      Scheduler
	resetDelay time.Duration
	log        lgr.L

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	resetTimer Timer
}

// New makes an orchestrator for store that creates deals through backend.
func New(store *form.Store, backend Backend, opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:      store,
		backend:    backend,
		sched:      opts.Scheduler,
		resetDelay: opts.ResetDelay,
		log:        opts.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	if o.sched == nil {
		o.sched = RealScheduler{}
	}
	if o.resetDelay <= 0 {
		o.resetDelay = DefaultResetDelay
	}
	if o.log == nil {
		o.log = lgr.NoOp
	}
	return o
}

// Submit validates the draft and, when valid, starts the create-deal call in the background.
// the status switches to submitting before Submit returns. calls made while a submission is
// in flight have no effect and return form.OutcomeBusy. after Close every call is busy.
func (o *Orchestrator) Submit() form.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return form.OutcomeBusy
	}

	ticket, draft, outcome := o.store.Begin()
	switch outcome {
	case form.OutcomeBusy:
		o.log.Logf("[DEBUG] submit ignored, form busy")
		return outcome
	case form.OutcomeInvalid:
		o.log.Logf("[DEBUG] submit blocked by validation errors")
		return outcome
	}

	o.log.Logf("[INFO] submitting deal %q for %q", draft.Title, draft.Company)
	o.wg.Add(1)
	go o.run(ticket, draft)
	return outcome
}

// Cancel discards the draft and returns the form to idle. a submission still in flight
// keeps running but its result is ignored.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.stopResetLocked()
	o.mu.Unlock()
	o.store.Reset()
	o.log.Logf("[DEBUG] form canceled")
}

// Wait blocks until no submission is running. it must not race with Submit.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels an in-flight submission, drops a pending reset and waits for the
// background work to stop. the store is not updated after Close returns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.stopResetLocked()
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) run(ticket form.Ticket, draft deal.Draft) {
	defer o.wg.Done()

	id, err := o.create(draft)
	if o.ctx.Err() != nil {
		o.log.Logf("[DEBUG] dropping submission result after close")
		return
	}

	if err != nil {
		if o.store.Fail(ticket, err) {
			o.log.Logf("[WARN] create deal failed (%s): %v", deal.KindOf(err), err)
		}
		return
	}

	if !o.store.Succeed(ticket, id) {
		o.log.Logf("[DEBUG] deal %s created for a discarded submission", id)
		return
	}
	o.log.Logf("[INFO] deal %s created", id)

	// success is already visible to observers; the reset can only follow it
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.stopResetLocked()
	o.resetTimer = o.sched.AfterFunc(o.resetDelay, func() {
		// the timer may fire just as Close stops it; the lock orders the two
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed {
			return
		}
		if o.store.ResetAfter(ticket) {
			o.log.Logf("[DEBUG] form reset after success")
		}
	})
}

func (o *Orchestrator) create(draft deal.Draft) (deal.ID, error) {
	d, err := deal.ToDeal(draft)
	if err != nil {
		return "", err
	}
	return o.backend.CreateDeal(o.ctx, d)
}

// stopResetLocked must be called with mu held.
func (o *Orchestrator) stopResetLocked() {
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
}
