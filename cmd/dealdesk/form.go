package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/input"
	"github.com/nexuslink/dealdesk/pkg/render"
	"github.com/nexuslink/dealdesk/pkg/status"
)

// fieldLabels are the terminal prompts, in form order.
var fieldLabels = map[deal.Field]string{
	deal.FieldTitle:        "Deal title",
	deal.FieldCompany:      "Company",
	deal.FieldContactName:  "Contact name",
	deal.FieldContactEmail: "Contact email",
	deal.FieldContactPhone: "Contact phone (optional)",
	deal.FieldValue:        "Deal value ($)",
	deal.FieldStage:        "Stage",
	deal.FieldCloseDate:    "Expected close date (YYYY-MM-DD)",
	deal.FieldNotes:        "Notes (optional)",
}

// answers to the follow-up questions.
const (
	answerAnother = "Create another deal"
	answerQuit    = "Quit"
	answerRetry   = "Retry"
	answerEdit    = "Edit fields"
	answerDiscard = "Discard deal"
)

// formLogger is the part of the progress logger the terminal form writes to.
type formLogger interface {
	Print(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetStatus(s status.Status)
}

// submitter is the part of the orchestrator the terminal form drives.
type submitter interface {
	Submit() form.Outcome
	Cancel()
	Wait()
}

// terminalForm prompts for deal fields, submits and reports the result until the user quits.
type terminalForm struct {
	store   *form.Store
	orch    submitter
	in      input.Collector
	log     formLogger
	out     io.Writer
	noColor bool
}

// run loops over fill, submit and follow-up. input EOF or ctx cancellation end it without error.
func (t *terminalForm) run(ctx context.Context) error {
	holder := status.NewHolder()
	holder.OnChange(func(_, cur status.Status) { t.log.SetStatus(cur) })
	t.store.Subscribe(func(s form.Snapshot) { holder.Set(s.Status) })

	err := t.loop(ctx)
	if errors.Is(err, io.EOF) || errors.Is(err, input.ErrCanceled) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (t *terminalForm) loop(ctx context.Context) error {
	edit := true
	for {
		if edit {
			if err := t.fill(ctx); err != nil {
				return err
			}
		}
		edit = true

		switch t.orch.Submit() {
		case form.OutcomeInvalid:
			snap := t.store.Snapshot()
			t.log.Warn("%d field(s) need attention", len(snap.Errors))
			continue
		case form.OutcomeBusy:
			t.log.Warn("a submission is already running")
			t.orch.Wait()
			continue
		}

		snap := t.store.Snapshot()
		t.log.Print("creating deal %q for %s...", snap.Draft.Title, snap.Draft.Company)
		t.orch.Wait()

		snap = t.store.Snapshot()
		switch snap.Status {
		case status.Succeeded:
			t.log.Print("%s", snap.Banner)
			t.printSummary(snap)
			answer, err := t.in.AskQuestion(ctx, "Next", []string{answerAnother, answerQuit})
			if err != nil {
				return err
			}
			t.orch.Cancel() // reset now instead of waiting for the banner timeout
			if answer == answerQuit {
				return nil
			}
		case status.Failed:
			t.log.Error("%s", snap.Banner)
			answer, err := t.in.AskQuestion(ctx, "What now", failureOptions(snap.Failure))
			if err != nil {
				return err
			}
			switch answer {
			case answerRetry:
				edit = false
			case answerDiscard:
				t.orch.Cancel()
			}
		default:
			// reset while waiting, nothing to report
		}
	}
}

// failureOptions lists follow-ups for a failed submit. retry is offered only when sending
// the same draft again can succeed.
func failureOptions(f *form.Failure) []string {
	if f != nil && f.Kind.Retryable() {
		return []string{answerRetry, answerEdit, answerDiscard}
	}
	return []string{answerEdit, answerDiscard}
}

// fill asks for every field, showing the current value and any validation error.
func (t *terminalForm) fill(ctx context.Context) error {
	for _, f := range deal.Fields() {
		snap := t.store.Snapshot()
		if e, ok := snap.Errors[f]; ok {
			t.log.Warn("%s", e.Message)
		}

		var (
			value string
			err   error
		)
		if f == deal.FieldStage {
			value, err = t.in.AskQuestion(ctx, fieldLabels[f], stageOptions(snap.Draft.Stage))
		} else {
			value, err = t.in.AskText(ctx, fieldLabels[f], snap.Draft.Get(f))
		}
		if err != nil {
			return err
		}
		if err := t.store.SetField(f, value); err != nil {
			return fmt.Errorf("set %s: %w", f, err)
		}
	}
	return nil
}

// printSummary renders the markdown receipt of a created deal.
func (t *terminalForm) printSummary(snap form.Snapshot) {
	d, err := deal.ToDeal(snap.Draft)
	if err != nil {
		return
	}
	out, err := render.RenderMarkdown(render.DealSummary(d, snap.DealID), t.noColor)
	if err != nil {
		t.log.Warn("render summary: %v", err)
		return
	}
	_, _ = fmt.Fprintln(t.out, out)
}

// stageOptions lists the pipeline stages with the current one first.
func stageOptions(current deal.Stage) []string {
	res := []string{string(current)}
	for _, s := range deal.Stages() {
		if s != current {
			res = append(res, string(s))
		}
	}
	return res
}
