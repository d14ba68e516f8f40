package deal

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrorKind classifies a field validation failure.
type ErrorKind string

// validation error kinds.
const (
	KindRequired      ErrorKind = "required"
	KindInvalidFormat ErrorKind = "invalid_format"
	KindNotPositive   ErrorKind = "not_positive"
)

// FieldError describes why a single field is invalid.
type FieldError struct {
	Field   Field     `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Errors maps invalid fields to their error. a missing key means the field is valid.
type Errors map[Field]FieldError

// Clone returns an independent copy. nil stays nil.
func (e Errors) Clone() Errors {
	if e == nil {
		return nil
	}
	res := make(Errors, len(e))
	for k, v := range e {
		res[k] = v
	}
	return res
}

// Fields returns the invalid fields in form order.
func (e Errors) Fields() []Field {
	res := make([]Field, 0, len(e))
	for f := range e {
		res = append(res, f)
	}
	slices.SortFunc(res, func(a, b Field) int { return a.order() - b.order() })
	return res
}

// Error joins all messages in form order, so Errors can be returned as an error.
func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		msgs = append(msgs, string(f)+": "+e[f].Message)
	}
	return strings.Join(msgs, "; ")
}

// emailRe matches <non-space>@<non-space>.<non-space> anywhere in the value.
var emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks every field rule and collects all failures. it never modifies d.
// contactPhone, notes and stage are not validated.
func Validate(d Draft) Errors {
	errs := Errors{}
	required := func(f Field, msg string) bool {
		if strings.TrimSpace(d.Get(f)) == "" {
			errs[f] = FieldError{Field: f, Kind: KindRequired, Message: msg}
			return false
		}
		return true
	}

	required(FieldTitle, "Deal title is required")
	required(FieldCompany, "Company name is required")
	required(FieldContactName, "Contact name is required")

	if required(FieldContactEmail, "Email is required") && !emailRe.MatchString(d.ContactEmail) {
		errs[FieldContactEmail] = FieldError{Field: FieldContactEmail, Kind: KindInvalidFormat, Message: "Email is invalid"}
	}

	if required(FieldValue, "Deal value is required") {
		if _, ok := parseAmount(d.Value); !ok {
			errs[FieldValue] = FieldError{Field: FieldValue, Kind: KindNotPositive, Message: "Deal value must be a positive number"}
		}
	}

	required(FieldCloseDate, "Expected close date is required")

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// parseAmount parses a decimal deal value and reports whether it is a finite number above zero.
// hex floats are not amounts.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
