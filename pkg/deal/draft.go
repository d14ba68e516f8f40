// Package deal defines the deal-creation form model: the editable draft, its field validation rules,
// the boundary request sent to the create-deal backend, and the submission error taxonomy.
package deal

import (
	"fmt"
	"strings"
)

// Stage is the pipeline position of a sales deal.
type Stage string

// pipeline stages, in order.
const (
	StageQualification    Stage = "Qualification"
	StageMeetingScheduled Stage = "Meeting Scheduled"
	StageProposalSent     Stage = "Proposal Sent"
	StageNegotiation      Stage = "Negotiation"
	StageClosedWon        Stage = "Closed Won"
	StageClosedLost       Stage = "Closed Lost"
)

// DefaultStage is the stage of a fresh draft.
const DefaultStage = StageQualification

var stages = []Stage{
	StageQualification,
	StageMeetingScheduled,
	StageProposalSent,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// Stages returns all stages in pipeline order.
func Stages() []Stage {
	res := make([]Stage, len(stages))
	copy(res, stages)
	return res
}

// ParseStage accepts either the display label ("Meeting Scheduled") or the compact
// identifier ("MeetingScheduled"), case-insensitive.
func ParseStage(s string) (Stage, error) {
	key := compact(s)
	for _, st := range stages {
		if compact(string(st)) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Valid reports whether s is one of the six pipeline stages.
func (s Stage) Valid() bool {
	for _, st := range stages {
		if st == s {
			return true
		}
	}
	return false
}

func compact(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// Field names a draft attribute. values match the form input names.
type Field string

// draft fields, in form order.
const (
	FieldTitle        Field = "title"
	FieldCompany      Field = "company"
	FieldContactName  Field = "contactName"
	FieldContactEmail Field = "contactEmail"
	FieldContactPhone Field = "contactPhone"
	FieldValue        Field = "value"
	FieldStage        Field = "stage"
	FieldCloseDate    Field = "closeDate"
	FieldNotes        Field = "notes"
)

var fields = []Field{
	FieldTitle, FieldCompany, FieldContactName, FieldContactEmail, FieldContactPhone,
	FieldValue, FieldStage, FieldCloseDate, FieldNotes,
}

// Fields returns all draft fields in form order.
func Fields() []Field {
	res := make([]Field, len(fields))
	copy(res, fields)
	return res
}

// ParseField returns the Field for name or an error for unknown names.
func ParseField(name string) (Field, error) {
	for _, f := range fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// order returns the form position of f, used to sort error listings.
func (f Field) order() int {
	for i, ff := range fields {
		if ff == f {
			return i
		}
	}
	return len(fields)
}

// Draft is the in-progress deal being edited. all values are raw user text except Stage.
type Draft struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	Value        string `json:"value"`
	Stage        Stage  `json:"stage"`
	CloseDate    string `json:"closeDate"`
	Notes        string `json:"notes"`
}

// NewDraft returns an empty draft at the default stage.
func NewDraft() Draft {
	return Draft{Stage: DefaultStage}
}

// Get returns the raw value of field f.
func (d Draft) Get(f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldCompany:
		return d.Company
	case FieldContactName:
		return d.ContactName
	case FieldContactEmail:
		return d.ContactEmail
	case FieldContactPhone:
		return d.ContactPhone
	case FieldValue:
		return d.Value
	case FieldStage:
		return string(d.Stage)
	case FieldCloseDate:
		return d.CloseDate
	case FieldNotes:
		return d.Notes
	}
	return ""
}

// With returns a copy of the draft with field f set to value.
// the stage field only accepts one of the pipeline stages; on error the receiver is returned unchanged.
func (d Draft) With(f Field, value string) (Draft, error) {
	switch f {
	case FieldTitle:
		d.Title = value
	case FieldCompany:
		d.Company = value
	case FieldContactName:
		d.ContactName = value
	case FieldContactEmail:
		d.ContactEmail = value
	case FieldContactPhone:
		d.ContactPhone = value
	case FieldValue:
		d.Value = value
	case FieldStage:
		st, err := ParseStage(value)
		if err != nil {
			return d, err
		}
		d.Stage = st
	case FieldCloseDate:
		d.CloseDate = value
	case FieldNotes:
		d.Notes = value
	default:
		return d, fmt.Errorf("unknown field %q", string(f))
	}
	return d, nil
}
