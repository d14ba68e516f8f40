package deal

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a create-deal call failed.
type FailureKind string

// failure kinds reported by the create-deal boundary.
const (
	FailureValidation FailureKind = "validation" // request rejected as malformed
	FailureTransient  FailureKind = "transient"  // retryable, e.g. backend unavailable
	FailureRejected   FailureKind = "rejected"   // non-retryable, e.g. duplicate deal
)

// sentinel errors matched by SubmissionError via errors.Is.
var (
	ErrValidation = errors.New("deal validation failed")
	ErrTransient  = errors.New("deal submission failed")
	ErrRejected   = errors.New("deal rejected")
)

// SubmissionError is returned by create-deal backends.
type SubmissionError struct {
	Kind    FailureKind
	Message string
	Err     error // underlying cause, optional
}

// NewSubmissionError makes a SubmissionError of the given kind.
func NewSubmissionError(kind FailureKind, msg string, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Message: msg, Err: err}
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *SubmissionError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == FailureValidation
	case ErrTransient:
		return e.Kind == FailureTransient
	case ErrRejected:
		return e.Kind == FailureRejected
	}
	return false
}

// KindOf classifies any error returned by a backend. unknown errors, including
// context cancellation, count as transient.
func KindOf(err error) FailureKind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.As(err, new(Errors)) {
		return FailureValidation
	}
	return FailureTransient
}

// Retryable reports whether resubmitting the same draft may succeed.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient
}

// Banner is the form-level message shown for a failed submission.
func (k FailureKind) Banner() string {
	switch k {
	case FailureValidation:
		return "The deal could not be created. Please check the form and try again."
	case FailureRejected:
		return "The deal was rejected. A deal with this title already exists for this company."
	default:
		return "There was an error creating the deal. Please try again."
	}
}

// SuccessBanner is the form-level message shown after a successful submission.
const SuccessBanner = "Deal successfully created!"
