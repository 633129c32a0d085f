package mirror

import (
	"context"
	"net/http"
	"time"

	"github.com/guonaihong/gout"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/pricing"
)

// ProductRow is the mirrored subset of a product, prices in currency units
type ProductRow struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  *string  `json:"category"`
	Price     float64  `json:"price"`
	OldPrice  *float64 `json:"oldPrice"`
	PriceTwo  *float64 `json:"priceTwo"`
	Image     *string  `json:"image"`
	CreatedAt string   `json:"createdAt"`
}

func optionalPrice(c *int64) *float64 {
	if c == nil || *c == 0 {
		return nil
	}
	f := pricing.Float(pricing.FromCents(*c))
	return &f
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func NewProductRow(p domain.Product) ProductRow {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return ProductRow{
		ID:        p.ID,
		Name:      p.Name,
		Category:  optionalString(p.Category),
		Price:     pricing.Float(pricing.FromCents(p.Price)),
		OldPrice:  optionalPrice(p.OldPrice),
		PriceTwo:  optionalPrice(p.PriceTwo),
		Image:     optionalString(p.Image),
		CreatedAt: created.UTC().Format(time.RFC3339),
	}
}

// UpsertProduct merges the product into the mirrored table by id
func (c *Client) UpsertProduct(ctx context.Context, row ProductRow) error {
	if c.productsTable == "" {
		return ErrDisabled
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		table:  c.productsTable,
		query:  gout.H{"on_conflict": "id"},
		prefer: "resolution=merge-duplicates,return=representation",
		body:   []ProductRow{row},
	})
	return err
}

// DeleteProduct removes the mirrored row
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if c.productsTable == "" {
		return ErrDisabled
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		table:  c.productsTable,
		query:  gout.H{"id": "eq." + id},
	})
	return err
}
