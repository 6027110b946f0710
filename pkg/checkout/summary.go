package checkout

import (
	"strings"

	"github.com/example/obelisco/pkg/cart"
	"github.com/example/obelisco/pkg/models"
	"github.com/example/obelisco/pkg/order"
)

// SummaryField is one human-readable line of the review step.
type SummaryField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary is the review-step projection: every collected field alongside the
// cart contents and computed totals.
type Summary struct {
	Fields []SummaryField `json:"fields"`
	Items  []cart.Row     `json:"items"`
	Quote  order.Quote    `json:"quote"`
}

// Display order and labels for the review step. The cvv is never echoed
// back and the card number is masked.
var summaryLayout = []struct {
	key   string
	label string
}{
	{"fullName", "Full name"},
	{"email", "Email"},
	{"phone", "Phone"},
	{"address", "Address"},
	{"city", "City"},
	{"state", "State"},
	{"zipCode", "ZIP code"},
	{"cardName", "Name on card"},
	{"cardNumber", "Card number"},
	{"expiryDate", "Expires"},
}

// BuildSummary aggregates the collected field set, the rendered cart view,
// and the quoted totals into the review projection.
func BuildSummary(fields models.FieldSet, view cart.View, quote order.Quote) Summary {
	summary := Summary{
		Items: view.Rows,
		Quote: quote,
	}

	for _, entry := range summaryLayout {
		value := strings.TrimSpace(fields[entry.key])
		if value == "" {
			continue
		}
		if entry.key == "cardNumber" {
			value = maskCardNumber(value)
		}
		summary.Fields = append(summary.Fields, SummaryField{Label: entry.label, Value: value})
	}

	return summary
}

func maskCardNumber(s string) string {
	digits := strings.ReplaceAll(s, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return "**** " + digits[len(digits)-4:]
}
