package price

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a canonical price observation value. Determined is false when
// no price could be read from the input; Amount is zero in that case.
type Price struct {
	Amount     decimal.Decimal
	Determined bool
}

// Undetermined is the sentinel for inputs that carry no readable price.
var Undetermined = Price{}

// FromDecimal wraps a determined decimal value.
func FromDecimal(d decimal.Decimal) Price {
	return Price{Amount: d, Determined: true}
}

// String renders the amount, or "NA" when undetermined.
func (p Price) String() string {
	if !p.Determined {
		return "NA"
	}
	return p.Amount.String()
}

// LessThan reports whether both prices are determined and p < other.
func (p Price) LessThan(other Price) bool {
	return p.Determined && other.Determined && p.Amount.LessThan(other.Amount)
}

var (
	currencyStripper = strings.NewReplacer("$", "", "£", "", "€", "", "EUR", "", "USD", "", "GBP", "")

	europeanDecimal = regexp.MustCompile(`^\d{1,3},\d{2}$`)
	decimalRun      = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)
	integerRun      = regexp.MustCompile(`\d+`)
)

// Normalize turns raw page text into a canonical price. The separator
// heuristic resolves formats in a fixed precedence: mixed "1,234.56"
// first, then the narrow European decimal "99,99" (exactly two trailing
// digits), then lone commas as thousands separators. "1.234" stays
// ambiguous across locales and is read as 1.23 by the decimal-run rule;
// that misclassification is inherited behavior, pinned by tests.
func Normalize(raw string) Price {
	cleaned := strings.TrimSpace(currencyStripper.Replace(raw))
	if cleaned == "" {
		return Undetermined
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		if europeanDecimal.MatchString(cleaned) {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	run := decimalRun.FindString(cleaned)
	if run == "" {
		run = integerRun.FindString(cleaned)
	}
	if run == "" {
		return Undetermined
	}

	d, err := decimal.NewFromString(run)
	if err != nil || d.IsNegative() {
		return Undetermined
	}
	return FromDecimal(d)
}
