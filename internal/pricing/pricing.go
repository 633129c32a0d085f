package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const MaxQuantity = 99

// ComboKeys are the payload keys accepted for the "Leve 2" price, in priority order
var ComboKeys = []string{
	"priceTwo", "comboPrice", "bundlePrice", "priceCombo", "priceBundle",
	"price_for_two", "priceForTwo", "leve2", "leveDois", "leve2Price",
}

// ClampQuantity rounds q half up and clamps it to [0, MaxQuantity]. Non-finite input counts as 1.
func ClampQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		q = 1
	}
	n := math.Floor(q + 0.5)
	if n < 0 {
		return 0
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return int(n)
}

// ParseAmount reads numbers and localized money strings such as "R$ 1.299,90".
func ParseAmount(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return val, true
	case string:
		return parseAmountString(val)
	case bool:
		return decimal.Zero, false
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	var cleaned []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == ',' || c == '.' || c == '-' {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return decimal.Zero, false
	}
	// a dot followed by exactly three digits is a thousands separator
	var b strings.Builder
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if c == '.' && isThousandsDot(cleaned, i) {
			continue
		}
		if c == ',' {
			c = '.'
		}
		b.WriteByte(c)
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func isThousandsDot(s []byte, i int) bool {
	if i+3 >= len(s) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if !isDigit(s[j]) {
			return false
		}
	}
	return i+4 == len(s) || !isDigit(s[i+4])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ComboPrice parses a "Leve 2" price; only positive values count.
func ComboPrice(v interface{}) (decimal.Decimal, bool) {
	d, ok := ParseAmount(v)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// ExtractComboPrice returns the first positive combo price among ComboKeys
func ExtractComboPrice(m map[string]interface{}) (decimal.Decimal, bool) {
	for _, key := range ComboKeys {
		raw, exists := m[key]
		if !exists {
			continue
		}
		if d, ok := ComboPrice(raw); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// LineTotal prices qty units. With a positive combo and qty >= 2 every pair costs combo
// and an odd unit costs unit.
func LineTotal(unit decimal.Decimal, qty int, combo decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	if combo.IsPositive() && qty >= 2 {
		pairs := decimal.NewFromInt(int64(qty / 2))
		rest := decimal.NewFromInt(int64(qty % 2))
		return combo.Mul(pairs).Add(unit.Mul(rest))
	}
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// Installment is an interest-free split of a total
type Installment struct {
	Count int             `json:"count"`
	Value decimal.Decimal `json:"-"`
}

var installmentTiers = []struct {
	min   int64
	count int
}{
	{400, 5},
	{300, 4},
	{200, 3},
}

// Installments returns the split offered for total, if any
func Installments(total decimal.Decimal) (Installment, bool) {
	for _, tier := range installmentTiers {
		if total.GreaterThanOrEqual(decimal.NewFromInt(tier.min)) {
			return Installment{
				Count: tier.count,
				Value: total.Div(decimal.NewFromInt(int64(tier.count))).Round(2),
			}, true
		}
	}
	return Installment{}, false
}

func (i Installment) Describe() string {
	return fmt.Sprintf("em até %dx de %s sem juros", i.Count, FormatBRL(i.Value))
}

// Cashback is the balance applied to a purchase
type Cashback struct {
	Applied decimal.Decimal
	Final   decimal.Decimal
}

// ApplyCashback spends up to balance against total. It reports false when nothing applies.
func ApplyCashback(total, balance decimal.Decimal) (Cashback, bool) {
	if !balance.IsPositive() {
		return Cashback{}, false
	}
	applied := decimal.Min(balance, decimal.Max(total, decimal.Zero))
	if !applied.IsPositive() {
		return Cashback{}, false
	}
	return Cashback{Applied: applied, Final: decimal.Max(total.Sub(applied), decimal.Zero)}, true
}

// DiscountPercent is the badge shown when a product has a higher previous price
func DiscountPercent(price int64, oldPrice *int64) int {
	if oldPrice == nil || *oldPrice <= 0 || *oldPrice <= price {
		return 0
	}
	ratio := decimal.NewFromInt(price).Div(decimal.NewFromInt(*oldPrice))
	return int(decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// FromCents converts minor units to currency
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// ToCents converts currency to minor units, rounding half away from zero
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Float returns d as a float64 for JSON payloads
func Float(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,56"
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
