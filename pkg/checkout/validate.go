package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/obelisco/pkg/models"
)

// Per-step required fields, keyed by form field name.
var requiredFields = map[int][]string{
	StepShipping: {"fullName", "email", "phone", "address", "city", "state", "zipCode"},
	StepPayment:  {"cardNumber", "cardName", "expiryDate", "cvv"},
}

var (
	cardDigitsPattern = regexp.MustCompile(`^[0-9]{13,19}$`)
	// MM/YY with month 01-12. The year is not range-checked beyond the
	// pattern; expired cards pass here.
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvPattern    = regexp.MustCompile(`^[0-9]{3,4}$`)
)

// FieldError flags one invalid form field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every failing field of a step. Fields[0] is the one
// the form should focus.
type ValidationError struct {
	Step   int          `json:"step"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d validation failed: %d invalid field(s)", e.Step, len(e.Fields))
}

// First returns the field to focus, or "".
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// ValidateStep checks every field the step owns against the supplied values.
// All failing fields are reported, not just the first.
func ValidateStep(step int, fields models.FieldSet) *ValidationError {
	var errs []FieldError

	for _, name := range requiredFields[step] {
		if strings.TrimSpace(fields[name]) == "" {
			errs = append(errs, FieldError{Field: name, Reason: "required"})
		}
	}

	if step == StepPayment {
		errs = append(errs, validatePayment(fields)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Step: step, Fields: errs}
}

func validatePayment(fields models.FieldSet) []FieldError {
	var errs []FieldError

	if card := strings.TrimSpace(fields["cardNumber"]); card != "" && !ValidCardNumber(card) {
		errs = append(errs, FieldError{Field: "cardNumber", Reason: "must be 13-19 digits"})
	}
	if exp := strings.TrimSpace(fields["expiryDate"]); exp != "" && !expiryPattern.MatchString(exp) {
		errs = append(errs, FieldError{Field: "expiryDate", Reason: "must match MM/YY"})
	}
	if cvv := strings.TrimSpace(fields["cvv"]); cvv != "" && !cvvPattern.MatchString(cvv) {
		errs = append(errs, FieldError{Field: "cvv", Reason: "must be 3-4 digits"})
	}

	return errs
}

// ValidCardNumber accepts 13-19 digits, ignoring interior spaces from the
// input mask.
func ValidCardNumber(s string) bool {
	return cardDigitsPattern.MatchString(strings.ReplaceAll(s, " ", ""))
}
