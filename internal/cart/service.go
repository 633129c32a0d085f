package cart

import (
	"context"

	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/pricing"
	"github.com/pkg/errors"
)

// ProductSource resolves catalog products
type ProductSource interface {
	Find(ctx context.Context, id string) (*domain.Product, error)
}

// Service keeps server-side carts priced from the catalog
type Service struct {
	store    Store
	products ProductSource
}

func NewService(store Store, products ProductSource) *Service {
	return &Service{store: store, products: products}
}

func (s *Service) Store() Store {
	return s.store
}

func itemFromProduct(p *domain.Product) Item {
	it := Item{
		ID:    p.ID,
		Name:  p.Name,
		Price: pricing.Float(pricing.FromCents(p.Price)),
		Image: p.Image,
		URL:   "/produto/" + p.ID,
	}
	if p.PriceTwo != nil && *p.PriceTwo > 0 {
		f := pricing.Float(pricing.FromCents(*p.PriceTwo))
		it.PriceTwo = &f
	}
	return it
}

func (s *Service) active(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.Find(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrUnavailable
	}
	return p, nil
}

// refresh re-reads every line from the catalog; lines whose product is gone or inactive are dropped
func (s *Service) refresh(ctx context.Context, c *Cart) (bool, error) {
	changed := false
	kept := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := s.active(ctx, it.ID)
		if errors.Is(err, ErrUnavailable) {
			changed = true
			continue
		}
		if err != nil {
			return false, err
		}
		fresh := itemFromProduct(p)
		fresh.Quantity = atLeastOne(it.Quantity)
		if fresh.Price != it.Price || fresh.Name != it.Name || !samePrice(fresh.PriceTwo, it.PriceTwo) || fresh.Image != it.Image {
			changed = true
		}
		kept = append(kept, fresh)
	}
	c.Items = kept
	return changed, nil
}

func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// update runs fn on a freshly priced cart inside a single store transaction
func (s *Service) update(ctx context.Context, token string, fn func(c *Cart) error) (*Cart, error) {
	return s.store.Update(ctx, token, func(c *Cart) (bool, error) {
		changed, err := s.refresh(ctx, c)
		if err != nil {
			return false, err
		}
		if fn == nil {
			return changed, nil
		}
		if err := fn(c); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Get loads a cart with current catalog prices
func (s *Service) Get(ctx context.Context, token string) (*Cart, error) {
	return s.update(ctx, token, nil)
}

// AddItem adds qty units of an active product
func (s *Service) AddItem(ctx context.Context, token, productID string, qty float64) (*Cart, error) {
	if !ValidToken(token) {
		return nil, ErrInvalidToken
	}
	p, err := s.active(ctx, productID)
	if err != nil {
		return nil, err
	}
	it := itemFromProduct(p)
	it.Quantity = atLeastOne(pricing.ClampQuantity(qty))
	return s.update(ctx, token, func(c *Cart) error {
		c.Add(it)
		return nil
	})
}

// SetQuantity sets a line quantity; zero removes the line
func (s *Service) SetQuantity(ctx context.Context, token, productID string, qty float64) (*Cart, error) {
	return s.update(ctx, token, func(c *Cart) error {
		if !c.SetQuantity(productID, qty) {
			return ErrItemNotFound
		}
		return nil
	})
}

// AdjustQuantity changes a line by delta; reaching zero removes the line
func (s *Service) AdjustQuantity(ctx context.Context, token, productID string, delta int) (*Cart, error) {
	return s.update(ctx, token, func(c *Cart) error {
		if !c.UpdateQuantity(productID, delta) {
			return ErrItemNotFound
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, token, productID string) (*Cart, error) {
	return s.update(ctx, token, func(c *Cart) error {
		if !c.Remove(productID) {
			return ErrItemNotFound
		}
		return nil
	})
}

// Clear empties the cart and forgets it
func (s *Service) Clear(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

// SetCustomer stores the phone and cashback balance used at checkout
func (s *Service) SetCustomer(ctx context.Context, token, phone string, cb *CashbackInfo) (*Cart, error) {
	return s.update(ctx, token, func(c *Cart) error {
		c.Phone = phone
		c.Cashback = cb
		return nil
	})
}

// Quote reprices a browser-held item list from the catalog. Lines whose product
// is unknown or inactive are dropped.
func (s *Service) Quote(ctx context.Context, items []Item) ([]Item, error) {
	c := &Cart{Items: items}
	if _, err := s.refresh(ctx, c); err != nil {
		return nil, err
	}
	return c.Items, nil
}
