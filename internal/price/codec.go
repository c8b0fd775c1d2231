// Package price parses, converts and formats listing prices in the
// reporting currency.
package price

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// Invalid is returned by Parse for anything that is not a price. It sorts
// after every real price.
var Invalid = math.Inf(1)

var (
	nonNumeric = regexp.MustCompile(`[^\d,.]`)
	spaces     = strings.NewReplacer("\u00a0", " ", "\u202f", " ")
)

type Codec struct {
	currency    string
	defaultRate decimal.Decimal
	rates       map[string]decimal.Decimal
	symbols     []string // longest first, so "US$" is tried before "$"
	printer     *message.Printer
}

func NewCodec(cfg utils.RatesConfig) *Codec {
	c := &Codec{
		currency:    cfg.Currency,
		defaultRate: decimal.NewFromFloat(cfg.Default),
		rates:       make(map[string]decimal.Decimal, len(cfg.BySymbol)),
		printer:     message.NewPrinter(language.English),
	}
	if c.currency == "" {
		c.currency = "FCFA"
	}
	for sym, r := range cfg.BySymbol {
		c.rates[sym] = decimal.NewFromFloat(r)
		c.symbols = append(c.symbols, sym)
	}
	sort.Slice(c.symbols, func(i, j int) bool {
		if len(c.symbols[i]) != len(c.symbols[j]) {
			return len(c.symbols[i]) > len(c.symbols[j])
		}
		return c.symbols[i] < c.symbols[j]
	})
	return c
}

func (c *Codec) Currency() string { return c.currency }

// Parse reads a price written in the reporting currency, e.g. "72 000 FCFA"
// or "8,994.00 FCFA". It returns Invalid when the text is not a price.
func (c *Codec) Parse(text string) float64 {
	s := strings.TrimSpace(spaces.Replace(text))
	if isSentinel(s) {
		return Invalid
	}
	if len(s) >= len(c.currency) && strings.EqualFold(s[len(s)-len(c.currency):], c.currency) {
		s = s[:len(s)-len(c.currency)]
	}
	s = strings.ReplaceAll(s, " ", "")
	return parseNumber(s)
}

// Convert turns an amount in the currency identified by symbol into the
// reporting currency. Unknown symbols use the default rate.
func (c *Codec) Convert(amount float64, symbol string) float64 {
	rate, ok := c.rates[symbol]
	if !ok {
		rate = c.defaultRate
	}
	v, _ := decimal.NewFromFloat(amount).Mul(rate).Round(2).Float64()
	return v
}

// Format renders v as "1,234.50 FCFA". Values that are not valid prices
// render as the N/A sentinel.
func (c *Codec) Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.NotAvailable
	}
	return c.printer.Sprintf("%.2f %s", v, c.currency)
}

// Normalize converts a raw source price ("$5.51", "12,99 €", "72 000 FCFA")
// into a formatted reporting-currency string, or N/A.
func (c *Codec) Normalize(raw string) string {
	s := strings.TrimSpace(spaces.Replace(raw))
	if isSentinel(s) {
		return models.NotAvailable
	}
	if strings.Contains(strings.ToUpper(s), strings.ToUpper(c.currency)) {
		return c.Format(c.Parse(s))
	}

	symbol := ""
	for _, sym := range c.symbols {
		if strings.Contains(s, sym) {
			symbol = sym
			break
		}
	}
	amount := parseNumber(nonNumeric.ReplaceAllString(s, ""))
	if !Valid(amount) {
		return models.NotAvailable
	}
	return c.Format(c.Convert(amount, symbol))
}

// Valid reports whether v can be shown, sorted and tracked.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// parseNumber applies the separator rule: a lone comma with no period is a
// decimal point, otherwise commas are thousands separators.
func parseNumber(s string) float64 {
	if s == "" {
		return Invalid
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid
	}
	return v
}

func isSentinel(s string) bool {
	switch strings.ToLower(s) {
	case "", strings.ToLower(models.NotAvailable), strings.ToLower(models.NoRating), models.Unknown:
		return true
	}
	return false
}
