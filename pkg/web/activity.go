package web

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/progress"
	"github.com/nexuslink/dealdesk/pkg/status"
)

// Logger is the console and file logger the activity feed writes to.
type Logger interface {
	Print(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetStatus(s status.Status)
}

// Activity turns form snapshots into activity events. it writes each event to the logger,
// keeps it in the buffer and hands it to the registered sinks (the SSE stream).
// Observe must be registered with form.Store.Subscribe, which serializes the calls.
type Activity struct {
	log    Logger
	buffer *Buffer
	holder *status.Holder
	last   form.Snapshot // owned by Observe

	mu    sync.Mutex
	sinks []func(Event)
}

// NewActivity makes an activity feed writing to log and buffer.
func NewActivity(log Logger, buffer *Buffer) *Activity {
	a := &Activity{log: log, buffer: buffer, holder: status.NewHolder()}
	a.holder.OnChange(a.onChange)
	return a
}

// OnEvent registers fn to receive every recorded event.
func (a *Activity) OnEvent(fn func(Event)) {
	a.mu.Lock()
	a.sinks = append(a.sinks, fn)
	a.mu.Unlock()
}

// Observe records what changed between the previous snapshot and snap.
func (a *Activity) Observe(snap form.Snapshot) {
	prev := a.last
	a.last = snap

	if snap.Blocked != prev.Blocked {
		names := make([]string, 0, len(snap.Errors))
		for _, f := range snap.Errors.Fields() {
			names = append(names, string(f))
		}
		text := fmt.Sprintf("submit blocked, %d field(s) need attention: %s", len(names), strings.Join(names, ", "))
		a.log.Warn("%s", text)
		a.record(NewInvalidEvent(snap.Status, text))
	}

	a.holder.Set(snap.Status)
}

// Warn records a warning that is not tied to a form change.
func (a *Activity) Warn(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	a.log.Warn("%s", text)
	a.record(NewWarnEvent(a.holder.Get(), text))
}

func (a *Activity) onChange(old, cur status.Status) {
	snap := a.last
	a.log.SetStatus(cur)

	var e Event
	switch cur {
	case status.Submitting:
		verb := "submitting"
		if old == status.Failed {
			verb = "retrying"
		}
		e = NewStatusEvent(cur, fmt.Sprintf("%s deal %q for %s, %s", verb, snap.Draft.Title,
			snap.Draft.Company, formatValue(snap.Draft.Value)))
		a.log.Print("%s", e.Text)
	case status.Succeeded:
		e = NewStatusEvent(cur, fmt.Sprintf("%s (id %s)", deal.SuccessBanner, snap.DealID))
		e.DealID = snap.DealID
		a.log.Print("%s", e.Text)
	case status.Failed:
		text := snap.Banner
		if snap.Failure != nil && snap.Failure.Detail != "" {
			text += " (" + snap.Failure.Detail + ")"
		}
		e = NewStatusEvent(cur, text)
		a.log.Error("%s", text)
	default:
		switch old {
		case status.Succeeded:
			e = NewStatusEvent(cur, "form reset for the next deal")
		case status.Submitting:
			e = NewStatusEvent(cur, "form cleared, in-flight submission discarded")
		default:
			e = NewStatusEvent(cur, "form cleared")
		}
		a.log.Print("%s", e.Text)
	}
	a.record(e)
}

func (a *Activity) record(e Event) {
	a.buffer.Add(e)
	a.mu.Lock()
	sinks := slices.Clone(a.sinks)
	a.mu.Unlock()
	for _, fn := range sinks {
		fn(e)
	}
}

// formatValue renders a draft value as money when it parses, as typed otherwise.
func formatValue(v string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return v
	}
	return progress.FormatMoney(f)
}
