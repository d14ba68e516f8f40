// Package form holds the state of one deal-creation form: the draft being edited, the
// per-field validation errors and the submission status. rendering layers read snapshots
// and send field edits; the submit orchestrator drives status transitions through Begin,
// Succeed, Fail and ResetAfter.
package form

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/status"
)

// Outcome is the result of a Begin call.
type Outcome string

// begin outcomes.
const (
	OutcomeStarted Outcome = "started" // draft valid, status is now submitting
	OutcomeInvalid Outcome = "invalid" // validation errors stored, status unchanged
	OutcomeBusy    Outcome = "busy"    // a submission is already in flight, nothing changed
)

// Ticket identifies one submission attempt. a reset invalidates all earlier tickets, so a
// result arriving for a discarded attempt is dropped.
type Ticket uint64

// Failure describes the last failed submission.
type Failure struct {
	Kind    deal.FailureKind `json:"kind"`
	Message string           `json:"message"`          // banner text shown to the user
	Detail  string           `json:"detail,omitempty"` // underlying error, for logs
}

// Snapshot is a read-only copy of the form state for rendering.
type Snapshot struct {
	Revision uint64        `json:"revision"` // increases on every change
	Blocked  uint64        `json:"blocked"`  // submits refused by validation, never reset
	Draft    deal.Draft    `json:"draft"`
	Errors   deal.Errors   `json:"errors"`
	Status   status.Status `json:"status"`
	Failure  *Failure      `json:"failure,omitempty"`
	DealID   deal.ID       `json:"dealId,omitempty"` // set while status is succeeded
	Banner   string        `json:"banner,omitempty"` // form-level success or failure message
}

// Valid reports whether the snapshot shows no field errors.
func (s Snapshot) Valid() bool { return len(s.Errors) == 0 }

// Store is the authoritative state of one form. all methods are safe for concurrent use.
// observers registered with Subscribe are called in mutation order, outside the state lock;
// they may read the store but must not mutate it.
type Store struct {
	emitMu sync.Mutex // serializes mutation + notification so observers see changes in order
	mu     sync.Mutex

	draft   deal.Draft
	errs    deal.Errors
	status  status.Status
	failure *Failure
	dealID  deal.ID

	ticket   Ticket
	revision uint64
	blocked  uint64
	subs     []func(Snapshot)
}

// NewStore makes a store with an empty draft in the idle state.
func NewStore() *Store {
	return &Store{draft: deal.NewDraft(), status: status.Idle}
}

// Subscribe registers fn to be called with a snapshot after every change.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetField overwrites one draft field and clears that field's validation error, if any.
// errors on other fields are kept; nothing is re-validated until the next submit.
func (s *Store) SetField(name deal.Field, value string) error {
	var err error
	s.mutate(func() bool {
		var next deal.Draft
		if next, err = s.draft.With(name, value); err != nil {
			err = fmt.Errorf("set %s: %w", name, err)
			return false
		}
		s.draft = next
		delete(s.errs, name)
		return true
	})
	return err
}

// Reset restores the empty draft, clears errors and failure, and returns to idle.
// any in-flight submission is detached: its result will be ignored.
func (s *Store) Reset() {
	s.mutate(func() bool {
		s.resetLocked()
		return true
	})
}

// Begin validates the current draft and, when valid, switches to submitting.
// while a submission is in flight, or its success is still on display before the auto
// reset, it does nothing and returns OutcomeBusy. on validation failure the errors replace
// the stored ones and the status stays as it was (idle or failed).
func (s *Store) Begin() (Ticket, deal.Draft, Outcome) {
	var (
		ticket  Ticket
		draft   deal.Draft
		outcome Outcome
	)
	s.mutate(func() bool {
		draft = s.draft
		if !status.CanTransition(s.status, status.Submitting) {
			outcome = OutcomeBusy
			return false
		}
		if errs := deal.Validate(s.draft); len(errs) > 0 {
			s.errs = errs
			s.blocked++
			outcome = OutcomeInvalid
			return true
		}
		s.errs = nil
		s.status = status.Submitting
		s.failure = nil
		s.dealID = ""
		s.ticket++
		ticket = s.ticket
		outcome = OutcomeStarted
		return true
	})
	return ticket, draft, outcome
}

// Succeed moves the attempt identified by t to succeeded. it reports false when t is stale.
func (s *Store) Succeed(t Ticket, id deal.ID) bool {
	return s.mutate(func() bool {
		if !s.current(t) || !status.CanTransition(s.status, status.Succeeded) {
			return false
		}
		s.status = status.Succeeded
		s.dealID = id
		return true
	})
}

// Fail moves the attempt identified by t to failed, keeping the draft for a retry.
// it reports false when t is stale.
func (s *Store) Fail(t Ticket, err error) bool {
	return s.mutate(func() bool {
		if !s.current(t) || !status.CanTransition(s.status, status.Failed) {
			return false
		}
		kind := deal.KindOf(err)
		s.status = status.Failed
		s.failure = &Failure{Kind: kind, Message: kind.Banner()}
		if err != nil {
			s.failure.Detail = err.Error()
		}
		return true
	})
}

// ResetAfter performs the post-success reset for attempt t. it does nothing unless the
// form still shows that attempt's success.
func (s *Store) ResetAfter(t Ticket) bool {
	return s.mutate(func() bool {
		if !s.current(t) || s.status != status.Succeeded {
			return false
		}
		s.resetLocked()
		return true
	})
}

// current reports whether t is the latest attempt. must be called with lock held.
func (s *Store) current(t Ticket) bool {
	return t != 0 && t == s.ticket
}

// resetLocked must be called with lock held.
func (s *Store) resetLocked() {
	s.draft = deal.NewDraft()
	s.errs = nil
	s.status = status.Idle
	s.failure = nil
	s.dealID = ""
	s.ticket++ // detach in-flight attempts
}

// mutate runs fn under the state lock and, if fn reports a change, notifies observers.
func (s *Store) mutate(fn func() bool) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	changed := fn()
	var (
		snap Snapshot
		subs []func(Snapshot)
	)
	if changed {
		s.revision++
		snap = s.snapshotLocked()
		subs = slices.Clone(s.subs)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return changed
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Revision: s.revision,
		Blocked:  s.blocked,
		Draft:    s.draft,
		Errors:   s.errs.Clone(),
		Status:   s.status,
		DealID:   s.dealID,
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
		snap.Banner = f.Message
	}
	if s.status == status.Succeeded {
		snap.Banner = deal.SuccessBanner
	}
	return snap
}
