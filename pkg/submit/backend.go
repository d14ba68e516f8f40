package submit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexuslink/dealdesk/pkg/deal"
)

// DefaultLatency is the simulated create-deal round trip.
const DefaultLatency = 1500 * time.Millisecond

// Backend creates deals. errors should be *deal.SubmissionError so the form can tell
// transient failures from rejections; other errors are treated as transient.
type Backend interface {
	CreateDeal(ctx context.Context, d deal.Deal) (deal.ID, error)
}

// Created is a deal accepted by the simulated backend.
type Created struct {
	ID        deal.ID   `json:"id"`
	Deal      deal.Deal `json:"deal"`
	CreatedAt time.Time `json:"created_at"`
}

// SimulatedBackend stands in for the create-deal service. it waits the latency window on
// the scheduler, draws success from the outcome source and keeps accepted deals in memory.
type SimulatedBackend struct {
	sched   Scheduler
	outcome OutcomeSource
	latency time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	deals []Created
	keys  map[string]deal.ID // normalized title+company of accepted deals
}

// SimulatedParams configures a SimulatedBackend. zero values use the defaults.
type SimulatedParams struct {
	Scheduler Scheduler     // RealScheduler if nil
	Outcome   OutcomeSource // RandomOutcome at DefaultSuccessProbability if nil
	Latency   time.Duration // DefaultLatency if zero, negative means no wait
}

// NewSimulatedBackend makes a simulated backend.
func NewSimulatedBackend(p SimulatedParams) *SimulatedBackend {
	b := &SimulatedBackend{
		sched:   p.Scheduler,
		outcome: p.Outcome,
		latency: p.Latency,
		now:     time.Now,
		keys:    make(map[string]deal.ID),
	}
	if b.sched == nil {
		b.sched = RealScheduler{}
	}
	if b.outcome == nil {
		b.outcome = NewRandomOutcome(DefaultSuccessProbability, nil)
	}
	if b.latency == 0 {
		b.latency = DefaultLatency
	}
	return b
}

// CreateDeal waits the simulated latency and then accepts or fails the deal.
// a failed draw is a transient error; a deal with the same title and company as an accepted
// one is rejected as a duplicate. cancellation of ctx aborts the wait.
func (b *SimulatedBackend) CreateDeal(ctx context.Context, d deal.Deal) (deal.ID, error) {
	if err := b.wait(ctx); err != nil {
		return "", deal.NewSubmissionError(deal.FailureTransient, "create deal canceled", err)
	}

	if !b.outcome.Succeed() {
		return "", deal.NewSubmissionError(deal.FailureTransient, "backend unavailable", nil)
	}

	key := dedupKey(d)
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.keys[key]; ok {
		return "", deal.NewSubmissionError(deal.FailureRejected,
			fmt.Sprintf("duplicate of deal %s", existing), nil)
	}
	id := deal.ID(uuid.NewString())
	b.keys[key] = id
	b.deals = append(b.deals, Created{ID: id, Deal: d, CreatedAt: b.now()})
	return id, nil
}

// Deals returns accepted deals in creation order.
func (b *SimulatedBackend) Deals() []Created {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]Created, len(b.deals))
	copy(res, b.deals)
	return res
}

// Count returns the number of accepted deals.
func (b *SimulatedBackend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.deals)
}

func (b *SimulatedBackend) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.latency < 0 {
		return nil
	}
	done := make(chan struct{})
	t := b.sched.AfterFunc(b.latency, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

func dedupKey(d deal.Deal) string {
	return strings.ToLower(d.Title) + "\x00" + strings.ToLower(d.Company)
}
