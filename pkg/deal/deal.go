package deal

import (
	"strings"
	"time"
)

// DateLayout is the expected close date format (ISO calendar date).
const DateLayout = "2006-01-02"

// ID identifies a created deal.
type ID string

// Deal is the create-deal request built from a validated draft: value is numeric and
// the close date is a calendar date.
type Deal struct {
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Value        float64   `json:"value"`
	Stage        Stage     `json:"stage"`
	CloseDate    time.Time `json:"close_date"`
	Notes        string    `json:"notes,omitempty"`
}

// ToDeal converts a draft into a create-deal request. it re-runs Validate, so a draft that
// skipped client-side checks still fails here, and additionally requires the close date
// to be a YYYY-MM-DD calendar date. failures are SubmissionErrors of kind validation.
func ToDeal(d Draft) (Deal, error) {
	if errs := Validate(d); len(errs) > 0 {
		return Deal{}, NewSubmissionError(FailureValidation, "draft is invalid", errs)
	}
	if !d.Stage.Valid() {
		return Deal{}, NewSubmissionError(FailureValidation, "unknown stage "+string(d.Stage), nil)
	}

	closeDate, err := time.Parse(DateLayout, strings.TrimSpace(d.CloseDate))
	if err != nil {
		return Deal{}, NewSubmissionError(FailureValidation, "close date must be YYYY-MM-DD", err)
	}

	value, _ := parseAmount(d.Value) // validated above

	return Deal{
		Title:        strings.TrimSpace(d.Title),
		Company:      strings.TrimSpace(d.Company),
		ContactName:  strings.TrimSpace(d.ContactName),
		ContactEmail: strings.TrimSpace(d.ContactEmail),
		ContactPhone: strings.TrimSpace(d.ContactPhone),
		Value:        value,
		Stage:        d.Stage,
		CloseDate:    closeDate,
		Notes:        strings.TrimSpace(d.Notes),
	}, nil
}
