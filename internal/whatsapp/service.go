package whatsapp

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/pricing"
	"github.com/maudia1/site/pkg/common"
	"github.com/maudia1/site/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	greeting = "Olá! Gostaria de finalizar a compra dos itens:"
	baseURL  = "https://wa.me/"

	MetricCheckouts = "checkout_links"
)

// Checkout is the hand-off returned to the storefront
type Checkout struct {
	URL     string       `json:"url"`
	Message string       `json:"message"`
	Summary cart.Summary `json:"summary"`
}

// Service builds WhatsApp deep links for a store number.
type Service struct {
	number string
}

// New keeps only the digits of number.
func New(number string) *Service {
	return &Service{number: common.Digits(number)}
}

func (s *Service) Number() string {
	return s.number
}

func brl(v float64) string {
	return pricing.FormatBRL(decimal.NewFromFloat(v))
}

// Message renders the order text for a priced cart
func Message(sum cart.Summary) string {
	parts := make([]string, 0, len(sum.Lines)+5)
	parts = append(parts, greeting)
	for _, l := range sum.Lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		parts = append(parts, "- "+l.Name+" (x"+strconv.Itoa(qty)+") — "+brl(l.Total))
	}
	parts = append(parts, "", "Total: "+pricing.FormatBRL(sum.TotalDecimal()))
	if sum.Cashback != nil {
		parts = append(parts, "Com cashback: "+brl(sum.Cashback.FinalPrice)+" (economia de "+brl(sum.Cashback.Applied)+")")
	}
	if sum.Installment != nil {
		parts = append(parts, "Parcelado: "+strconv.Itoa(sum.Installment.Count)+"x de "+brl(sum.Installment.Value))
	}
	return strings.Join(parts, "\n")
}

// componentEscaper turns url.QueryEscape output into browser encodeURIComponent output
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeText percent-encodes text for the wa.me text parameter
func EscapeText(text string) string {
	return componentEscaper.Replace(url.QueryEscape(text))
}

// Link is the wa.me URL that opens a chat with text prefilled
func (s *Service) Link(text string) string {
	return baseURL + s.number + "?text=" + EscapeText(text)
}

// Checkout prices the cart and builds the hand-off link. Empty carts are rejected.
func (s *Service) Checkout(c *cart.Cart) (*Checkout, error) {
	if c == nil || len(c.Items) == 0 {
		return nil, cart.ErrEmptyCart
	}
	sum := c.Summary()
	msg := Message(sum)
	metrics.Incr(MetricCheckouts)
	zap.L().Info("checkout link generated",
		zap.String("cart", c.Token),
		zap.Int("items", sum.Count),
		zap.Float64("total", sum.Total),
		zap.String("namespace", "checkout"))
	return &Checkout{URL: s.Link(msg), Message: msg, Summary: sum}, nil
}

// CheckoutItems prices a stateless item list, as sent by a browser-held cart
func (s *Service) CheckoutItems(items []cart.Item, cb *cart.CashbackInfo) (*Checkout, error) {
	c := cart.New("")
	c.Items = items
	c.Cashback = cb
	return s.Checkout(c)
}
