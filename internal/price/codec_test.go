package price

import (
	"math"
	"strings"
	"testing"

	"pricewatch/pkg/utils"
)

func newTestCodec() *Codec {
	return NewCodec(utils.DefaultConfig().Rates)
}

func TestParse(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		in   string
		want float64
	}{
		{"72 000 FCFA", 72000},
		{"8,994.00 FCFA", 8994},
		{"72 000 FCFA", 72000},
		{"12,5 FCFA", 12.5},
		{"1,234,567.89 FCFA", 1234567.89},
		{"500", 500},
		{"0.00 FCFA", 0},
	}
	for _, tt := range tests {
		if got := c.Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	c := newTestCodec()
	for _, in := range []string{"", "N/A", "No Rating", "unknown", "free", "FCFA", "12.3.4 FCFA", "NaN", "inf"} {
		if got := c.Parse(in); !math.IsInf(got, 1) {
			t.Errorf("Parse(%q) = %v; want Invalid", in, got)
		}
		if Valid(c.Parse(in)) {
			t.Errorf("Valid(Parse(%q)) = true", in)
		}
	}
}

func TestParseDecimalCommaMatchesPeriod(t *testing.T) {
	c := newTestCodec()
	for _, in := range []string{"12,5 FCFA", "0,99 FCFA", "1999,00 FCFA"} {
		withPeriod := strings.Replace(in, ",", ".", 1)
		if a, b := c.Parse(in), c.Parse(withPeriod); a != b {
			t.Errorf("Parse(%q) = %v but Parse(%q) = %v", in, a, withPeriod, b)
		}
	}
}

func TestFormat(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		in   float64
		want string
	}{
		{8994, "8,994.00 FCFA"},
		{72000, "72,000.00 FCFA"},
		{500, "500.00 FCFA"},
		{1234567.891, "1,234,567.89 FCFA"},
		{Invalid, "N/A"},
	}
	for _, tt := range tests {
		if got := c.Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	c := newTestCodec()
	for _, in := range []string{"72 000 FCFA", "8,994.00 FCFA", "12,5 FCFA", "3306.00 FCFA"} {
		v := c.Parse(in)
		if got := c.Parse(c.Format(v)); got != v {
			t.Errorf("Parse(Format(Parse(%q))) = %v; want %v", in, got, v)
		}
	}
}

func TestConvert(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		amount float64
		symbol string
		want   float64
	}{
		{5.51, "$", 3306},
		{10, "€", 6559.57},
		{2, "£", 1600},
		{1, "¥", 600},
		{1, "", 600},
	}
	for _, tt := range tests {
		if got := c.Convert(tt.amount, tt.symbol); got != tt.want {
			t.Errorf("Convert(%v, %q) = %v; want %v", tt.amount, tt.symbol, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		raw  string
		want string
	}{
		{"$5.51", "3,306.00 FCFA"},
		{"$1,299.99", "779,994.00 FCFA"},
		{"12,99 €", "8,520.88 FCFA"},
		{"£2.00", "1,600.00 FCFA"},
		{"72 000 FCFA", "72,000.00 FCFA"},
		{"N/A", "N/A"},
		{"", "N/A"},
		{"call for price", "N/A"},
	}
	for _, tt := range tests {
		if got := c.Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}
