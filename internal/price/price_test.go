package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLiteralCases(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"$123.45", "123.45"},
		{"$1,234.56", "1234.56"},
		{"€99,99", "99.99"},
		{"£1,234.56", "1234.56"},
		{"1,234", "1234"},
		{"$1,234,567.89", "1234567.89"},
		{"EUR 49,95", "49.95"},
		{"  $ 7  ", "7"},
		{"Price: $19.99 (was $24.99)", "19.99"},
	}

	for _, tc := range cases {
		got := Normalize(tc.raw)
		assert.True(t, got.Determined, "input %q", tc.raw)
		want, err := decimal.NewFromString(tc.want)
		assert.NoError(t, err)
		assert.True(t, got.Amount.Equal(want), "input %q: got %s want %s", tc.raw, got.Amount, want)
	}
}

func TestNormalizeUndetermined(t *testing.T) {
	for _, raw := range []string{"", "Out of stock", "NA", "$", "free!", "€ ---"} {
		got := Normalize(raw)
		assert.False(t, got.Determined, "input %q", raw)
	}
}

func TestNormalizeAmbiguousDotFormat(t *testing.T) {
	// "1.234" is genuinely ambiguous across locales; the inherited
	// heuristic reads it as 1.23 (first decimal run, capped at two
	// fractional digits).
	got := Normalize("1.234")
	assert.True(t, got.Determined)
	assert.Equal(t, "1.23", got.Amount.String())
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"$123.45", "€99,99", "1,234", "$1,234,567.89", "42"}
	for _, raw := range inputs {
		first := Normalize(raw)
		assert.True(t, first.Determined)
		second := Normalize(first.String())
		assert.True(t, second.Determined)
		assert.True(t, first.Amount.Equal(second.Amount), "input %q", raw)
	}
}

func TestNormalizeNeverNegative(t *testing.T) {
	for _, raw := range []string{"-$5.00", "discount -10", "$-3,50"} {
		got := Normalize(raw)
		if got.Determined {
			assert.False(t, got.Amount.IsNegative(), "input %q", raw)
		}
	}
}

func TestPriceLessThan(t *testing.T) {
	a := Normalize("$80")
	b := Normalize("$100")
	assert.True(t, a.LessThan(b))
	assert.False(t, b.LessThan(a))
	assert.False(t, Undetermined.LessThan(b))
	assert.False(t, a.LessThan(Undetermined))
}
