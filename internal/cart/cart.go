package cart

import (
	"math"
	"strings"
	"time"

	"github.com/maudia1/site/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Item is one cart line. Price and PriceTwo are in currency units.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Image    string   `json:"image"`
	URL      string   `json:"url"`
	Quantity int      `json:"quantity"`
	PriceTwo *float64 `json:"priceTwo"`
}

// CashbackInfo is the customer balance attached to a cart
type CashbackInfo struct {
	Name   string  `json:"name,omitempty"`
	Amount float64 `json:"amount"`
}

type Cart struct {
	Token     string        `json:"token"`
	Items     []Item        `json:"items"`
	Phone     string        `json:"phone,omitempty"`
	Cashback  *CashbackInfo `json:"cashback"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func New(token string) *Cart {
	return &Cart{Token: token, Items: []Item{}}
}

// NormalizeItem validates a loosely typed line. Lines without id, name or a numeric price are rejected.
func NormalizeItem(m map[string]interface{}) (Item, bool) {
	id := strings.TrimSpace(cast.ToString(m["id"]))
	name := strings.TrimSpace(cast.ToString(m["name"]))
	price, err := cast.ToFloat64E(m["price"])
	if id == "" || name == "" || err != nil || math.IsNaN(price) || math.IsInf(price, 0) || m["price"] == nil {
		return Item{}, false
	}
	qty := 1.0
	if q, err := cast.ToFloat64E(m["quantity"]); err == nil && q != 0 {
		qty = q
	}
	item := Item{
		ID:       id,
		Name:     name,
		Price:    price,
		Image:    cast.ToString(m["image"]),
		URL:      cast.ToString(m["url"]),
		Quantity: atLeastOne(pricing.ClampQuantity(qty)),
	}
	if combo, ok := pricing.ExtractComboPrice(m); ok {
		f := pricing.Float(combo)
		item.PriceTwo = &f
	}
	return item, true
}

func atLeastOne(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

func (c *Cart) index(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add merges item into the cart. An existing line keeps its price and takes the new combo price when one is given.
func (c *Cart) Add(item Item) {
	item.Quantity = atLeastOne(pricing.ClampQuantity(float64(item.Quantity)))
	if i := c.index(item.ID); i >= 0 {
		existing := &c.Items[i]
		existing.Quantity = pricing.ClampQuantity(float64(existing.Quantity + item.Quantity))
		if item.PriceTwo != nil {
			existing.PriceTwo = item.PriceTwo
		}
		return
	}
	c.Items = append(c.Items, item)
}

// UpdateQuantity changes a line by delta and drops it at zero. It reports whether the line existed.
func (c *Cart) UpdateQuantity(id string, delta int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	current := c.Items[i].Quantity
	if current == 0 {
		current = 1
	}
	return c.SetQuantity(id, float64(current+delta))
}

// SetQuantity sets an absolute quantity; zero or less removes the line
func (c *Cart) SetQuantity(id string, qty float64) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	next := pricing.ClampQuantity(qty)
	if next <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}
	c.Items[i].Quantity = next
	return true
}

func (c *Cart) Remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

// Count is the number of units in the cart
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += atLeastOne(it.Quantity)
	}
	return n
}

// LineTotal prices a single line with the combo rule
func LineTotal(it Item) decimal.Decimal {
	combo := decimal.Zero
	if it.PriceTwo != nil && *it.PriceTwo > 0 {
		combo = decimal.NewFromFloat(*it.PriceTwo)
	}
	return pricing.LineTotal(decimal.NewFromFloat(it.Price), atLeastOne(it.Quantity), combo)
}

// Line is a priced cart item
type Line struct {
	Item
	Total   float64 `json:"total"`
	Savings float64 `json:"savings"`
}

type InstallmentView struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type CashbackView struct {
	Applied    float64 `json:"applied"`
	FinalPrice float64 `json:"finalPrice"`
}

// Summary is the priced state of a cart
type Summary struct {
	Lines       []Line           `json:"items"`
	Count       int              `json:"count"`
	Subtotal    float64          `json:"subtotal"`
	Savings     float64          `json:"savings"`
	Total       float64          `json:"total"`
	Installment *InstallmentView `json:"installment"`
	Cashback    *CashbackView    `json:"cashback"`

	total decimal.Decimal
}

// TotalDecimal is the exact total used for formatting
func (s Summary) TotalDecimal() decimal.Decimal {
	return s.total
}

// Summarize prices every line and applies installments and the cashback balance
func Summarize(items []Item, cashback *CashbackInfo) Summary {
	s := Summary{Lines: make([]Line, 0, len(items))}
	subtotal, total := decimal.Zero, decimal.Zero
	for _, it := range items {
		qty := atLeastOne(it.Quantity)
		full := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(qty)))
		line := LineTotal(it)
		subtotal = subtotal.Add(full)
		total = total.Add(line)
		s.Count += qty
		s.Lines = append(s.Lines, Line{
			Item:    it,
			Total:   pricing.Float(line),
			Savings: pricing.Float(full.Sub(line)),
		})
	}
	s.total = total
	s.Subtotal = pricing.Float(subtotal)
	s.Total = pricing.Float(total)
	s.Savings = pricing.Float(subtotal.Sub(total))

	if inst, ok := pricing.Installments(total); ok {
		s.Installment = &InstallmentView{Count: inst.Count, Value: pricing.Float(inst.Value), Label: inst.Describe()}
	}
	if cashback != nil {
		if cb, ok := pricing.ApplyCashback(total, decimal.NewFromFloat(cashback.Amount)); ok {
			s.Cashback = &CashbackView{Applied: pricing.Float(cb.Applied), FinalPrice: pricing.Float(cb.Final)}
		}
	}
	return s
}

func (c *Cart) Summary() Summary {
	return Summarize(c.Items, c.Cashback)
}
