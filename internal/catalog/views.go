package catalog

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/pricing"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProductView is the storefront representation of a product, prices in currency units
type ProductView struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Subtitle      *string                `json:"subtitle"`
	Price         float64                `json:"price"`
	OldPrice      *float64               `json:"oldPrice"`
	PriceTwo      *float64               `json:"priceTwo"`
	Discount      int                    `json:"discount,omitempty"`
	Category      string                 `json:"category"`
	Brand         string                 `json:"brand"`
	Tags          string                 `json:"tags"`
	Image         string                 `json:"image"`
	Images        []string               `json:"images"`
	Description   string                 `json:"description"`
	Specs         map[string]interface{} `json:"specs"`
	IsActive      bool                   `json:"isActive"`
	IsBlackFriday bool                   `json:"isBlackFriday"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// SlotProduct is the summary attached to a slot
type SlotProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	OldPrice *float64 `json:"oldPrice"`
}

type SlotView struct {
	Slot      int          `json:"slot"`
	ProductID *string      `json:"productId"`
	Product   *SlotProduct `json:"product"`
}

type HeroView struct {
	ProductID *string      `json:"productId"`
	Product   *ProductView `json:"product"`
}

func centsPtr(v *int64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	f := pricing.Float(pricing.FromCents(*v))
	return &f
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decodeImages(raw string) []string {
	images := []string{}
	if raw == "" {
		return images
	}
	var parsed []interface{}
	if err := json.UnmarshalFromString(raw, &parsed); err != nil {
		return images
	}
	for _, v := range parsed {
		if s, ok := v.(string); ok {
			images = append(images, s)
		}
	}
	return images
}

func decodeSpecs(raw string) map[string]interface{} {
	specs := map[string]interface{}{}
	if raw == "" {
		return specs
	}
	var parsed map[string]interface{}
	if err := json.UnmarshalFromString(raw, &parsed); err != nil || parsed == nil {
		return specs
	}
	return parsed
}

// NewProductView converts a stored product
func NewProductView(p *domain.Product) *ProductView {
	return &ProductView{
		ID:            p.ID,
		Name:          p.Name,
		Subtitle:      strPtr(p.Subtitle),
		Price:         pricing.Float(pricing.FromCents(p.Price)),
		OldPrice:      centsPtr(p.OldPrice),
		PriceTwo:      centsPtr(p.PriceTwo),
		Discount:      pricing.DiscountPercent(p.Price, p.OldPrice),
		Category:      p.Category,
		Brand:         p.Brand,
		Tags:          p.Tags,
		Image:         p.Image,
		Images:        decodeImages(p.Images),
		Description:   p.Description,
		Specs:         decodeSpecs(p.Specs),
		IsActive:      p.IsActive,
		IsBlackFriday: p.IsBlackFriday,
		CreatedAt:     p.CreatedAt,
	}
}

func newSlotProduct(p *domain.Product) *SlotProduct {
	return &SlotProduct{
		ID:       p.ID,
		Name:     p.Name,
		Price:    pricing.Float(pricing.FromCents(p.Price)),
		OldPrice: centsPtr(p.OldPrice),
	}
}
