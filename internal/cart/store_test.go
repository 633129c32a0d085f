package cart

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/domain"
	"github.com/pkg/errors"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "carts.bolt"))
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fakeProducts map[string]*domain.Product

func (f fakeProducts) Find(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

type brokenProducts struct{}

func (brokenProducts) Find(context.Context, string) (*domain.Product, error) {
	return nil, errors.New("database is locked")
}

func TestValidToken(t *testing.T) {
	for _, tok := range []string{"abcd1234", "A-b_c-1234567890"} {
		if !ValidToken(tok) {
			t.Fatalf("%q should be valid", tok)
		}
	}
	for _, tok := range []string{"", "short", "has space 123", "../../etc/passwd"} {
		if ValidToken(tok) {
			t.Fatalf("%q should be invalid", tok)
		}
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.Get(ctx, "token-0001")
	if err != nil || len(c.Items) != 0 {
		t.Fatalf("new cart = %+v, %v", c, err)
	}
	c.Add(Item{ID: "a", Name: "A", Price: 10, Quantity: 2})
	c.Phone = "61992074182"
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "token-0001")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 || got.Phone != "61992074182" || got.UpdatedAt.IsZero() {
		t.Fatalf("unexpected cart %+v", got)
	}
	if err := s.Delete(ctx, "token-0001"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "token-0001")
	if len(got.Items) != 0 {
		t.Fatalf("cart not deleted")
	}
	if _, err := s.Get(ctx, "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestBoltStorePurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, tok := range []string{"token-0001", "token-0002"} {
		if err := s.Save(ctx, New(tok)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.PurgeBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("purge of fresh carts = %d, %v", n, err)
	}
	n, err = s.PurgeBefore(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 2 {
		t.Fatalf("purge = %d, %v", n, err)
	}
}

func TestServiceUsesCatalogPrices(t *testing.T) {
	combo := int64(18000)
	products := fakeProducts{
		"p1": {ID: "p1", Name: "Fone", Price: 10000, PriceTwo: &combo, IsActive: true},
		"p2": {ID: "p2", Name: "Cabo", Price: 2990, IsActive: false},
	}
	svc := NewService(newTestStore(t), products)
	ctx := context.Background()

	c, err := svc.AddItem(ctx, "token-0001", "p1", 3)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Price != 100 || *c.Items[0].PriceTwo != 180 || c.Items[0].URL != "/produto/p1" {
		t.Fatalf("unexpected cart %+v", c.Items)
	}
	if _, err := svc.AddItem(ctx, "token-0001", "p2", 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("inactive product err = %v", err)
	}
	if _, err := svc.AddItem(ctx, "token-0001", "nope", 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing product err = %v", err)
	}

	// price change in the catalog is picked up on read
	products["p1"].Price = 9000
	c, err = svc.Get(ctx, "token-0001")
	if err != nil || c.Items[0].Price != 90 {
		t.Fatalf("refreshed cart = %+v, %v", c, err)
	}
	if got := c.Summary().Total; got != 270 {
		t.Fatalf("total = %v, want 270", got)
	}

	// deactivated products drop out
	products["p1"].IsActive = false
	c, _ = svc.Get(ctx, "token-0001")
	if len(c.Items) != 0 {
		t.Fatalf("inactive line kept: %+v", c.Items)
	}
}

func TestServiceQuantityAndCustomer(t *testing.T) {
	products := fakeProducts{"p1": {ID: "p1", Name: "Fone", Price: 10000, IsActive: true}}
	svc := NewService(newTestStore(t), products)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "token-0001", "p1", 1); err != nil {
		t.Fatal(err)
	}
	c, err := svc.SetQuantity(ctx, "token-0001", "p1", 5)
	if err != nil || c.Items[0].Quantity != 5 {
		t.Fatalf("SetQuantity = %+v, %v", c, err)
	}
	if _, err := svc.SetQuantity(ctx, "token-0001", "x", 2); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v", err)
	}
	c, err = svc.SetCustomer(ctx, "token-0001", "61992074182", &CashbackInfo{Name: "Maria", Amount: 50})
	if err != nil {
		t.Fatal(err)
	}
	s := c.Summary()
	if s.Cashback == nil || s.Cashback.Applied != 50 || s.Cashback.FinalPrice != 450 {
		t.Fatalf("unexpected cashback %+v", s.Cashback)
	}
	c, err = svc.SetQuantity(ctx, "token-0001", "p1", 0)
	if err != nil || len(c.Items) != 0 {
		t.Fatalf("zero quantity must remove: %+v %v", c, err)
	}
	if err := svc.Clear(ctx, "token-0001"); err != nil {
		t.Fatal(err)
	}
}

func TestServiceQuote(t *testing.T) {
	combo := int64(18000)
	products := fakeProducts{
		"cam": {ID: "cam", Name: "Câmera", Price: 10000, PriceTwo: &combo, IsActive: true},
		"old": {ID: "old", Name: "Antigo", Price: 500, IsActive: false},
	}
	svc := NewService(newTestStore(t), products)

	items, err := svc.Quote(context.Background(), []Item{
		{ID: "cam", Name: "forged", Price: 1, Quantity: 3},
		{ID: "old", Name: "Antigo", Price: 5, Quantity: 1},
		{ID: "ghost", Name: "Ghost", Price: 5, Quantity: 1},
	})
	if err != nil || len(items) != 1 {
		t.Fatalf("items = %+v, %v", items, err)
	}
	if items[0].Name != "Câmera" || items[0].Price != 100 || items[0].Quantity != 3 {
		t.Fatalf("unexpected repriced line %+v", items[0])
	}
	if got := Summarize(items, nil).Total; got != 280 {
		t.Fatalf("total = %v, want 280", got)
	}
}

func TestServiceLookupFailuresPassThrough(t *testing.T) {
	svc := NewService(newTestStore(t), brokenProducts{})
	_, err := svc.AddItem(context.Background(), "token-0001", "p1", 1)
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want the lookup error", err)
	}
	if _, err := svc.Quote(context.Background(), []Item{{ID: "p1", Name: "Fone", Price: 1, Quantity: 1}}); err == nil {
		t.Fatalf("Quote should report the lookup error")
	}
}

func TestServiceConcurrentAdds(t *testing.T) {
	products := fakeProducts{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("p%d", i)
		products[id] = &domain.Product{ID: id, Name: id, Price: 1000, IsActive: true}
	}
	svc := NewService(newTestStore(t), products)
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := range products {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, "token-0001", id, 1); err != nil {
				t.Errorf("AddItem(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	c, err := svc.Get(ctx, "token-0001")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Items) != 20 {
		t.Fatalf("lines = %d, want 20", len(c.Items))
	}
}

func TestServiceConcurrentDeltas(t *testing.T) {
	products := fakeProducts{"p1": {ID: "p1", Name: "Fone", Price: 1000, IsActive: true}}
	svc := NewService(newTestStore(t), products)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "token-0001", "p1", 1); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdjustQuantity(ctx, "token-0001", "p1", 1); err != nil {
				t.Errorf("AdjustQuantity: %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := svc.Get(ctx, "token-0001")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Items[0].Quantity; got != 31 {
		t.Fatalf("quantity = %d, want 31", got)
	}
	if _, err := svc.AdjustQuantity(ctx, "token-0001", "missing", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v", err)
	}
	c, _ = svc.AdjustQuantity(ctx, "token-0001", "p1", -40)
	if len(c.Items) != 0 {
		t.Fatalf("negative delta past zero must remove the line: %+v", c.Items)
	}
}
