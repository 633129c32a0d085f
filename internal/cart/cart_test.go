package cart

import (
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestNormalizeItem(t *testing.T) {
	it, ok := NormalizeItem(map[string]interface{}{
		"id": " p1 ", "name": "Fone", "price": "99.9", "quantity": 150.0, "comboPrice": "R$ 150,00",
	})
	if !ok {
		t.Fatalf("expected valid item")
	}
	if it.ID != "p1" || it.Price != 99.9 || it.Quantity != 99 {
		t.Fatalf("unexpected item %+v", it)
	}
	if it.PriceTwo == nil || *it.PriceTwo != 150 {
		t.Fatalf("combo price not extracted: %v", it.PriceTwo)
	}

	if _, ok := NormalizeItem(map[string]interface{}{"id": "p1", "name": "x"}); ok {
		t.Fatalf("item without price must be rejected")
	}
	if _, ok := NormalizeItem(map[string]interface{}{"id": "", "name": "x", "price": 1}); ok {
		t.Fatalf("item without id must be rejected")
	}
	it, _ = NormalizeItem(map[string]interface{}{"id": "a", "name": "b", "price": 10, "quantity": -3})
	if it.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", it.Quantity)
	}
}

func TestAddMergesAndClamps(t *testing.T) {
	c := New("token-0001")
	c.Add(Item{ID: "a", Name: "A", Price: 10, Quantity: 60})
	c.Add(Item{ID: "a", Name: "A", Price: 10, Quantity: 60, PriceTwo: ptr(18)})
	if len(c.Items) != 1 {
		t.Fatalf("items = %d", len(c.Items))
	}
	if c.Items[0].Quantity != 99 {
		t.Fatalf("quantity = %d, want 99", c.Items[0].Quantity)
	}
	if c.Items[0].PriceTwo == nil || *c.Items[0].PriceTwo != 18 {
		t.Fatalf("combo not refreshed")
	}
	c.Add(Item{ID: "b", Name: "B", Price: 5})
	if c.Count() != 100 {
		t.Fatalf("count = %d", c.Count())
	}
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	c := New("token-0001")
	c.Add(Item{ID: "a", Name: "A", Price: 10, Quantity: 1})
	if !c.UpdateQuantity("a", 2) || c.Items[0].Quantity != 3 {
		t.Fatalf("increment failed: %+v", c.Items)
	}
	if !c.UpdateQuantity("a", -3) || len(c.Items) != 0 {
		t.Fatalf("line must be removed at zero: %+v", c.Items)
	}
	if c.UpdateQuantity("missing", 1) {
		t.Fatalf("unknown line must report false")
	}
}

func TestSummaryComboAndInstallments(t *testing.T) {
	items := []Item{
		{ID: "a", Name: "A", Price: 100, Quantity: 3, PriceTwo: ptr(180)},
		{ID: "b", Name: "B", Price: 50, Quantity: 1, PriceTwo: ptr(90)},
	}
	s := Summarize(items, nil)
	// 180 + 100 for the first line, 50 for the single unit
	if s.Total != 330 || s.Subtotal != 350 || s.Savings != 20 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Lines[0].Total != 280 || s.Lines[0].Savings != 20 || s.Lines[1].Total != 50 {
		t.Fatalf("unexpected lines %+v", s.Lines)
	}
	if s.Count != 4 {
		t.Fatalf("count = %d", s.Count)
	}
	if s.Installment == nil || s.Installment.Count != 4 || s.Installment.Value != 82.5 {
		t.Fatalf("unexpected installment %+v", s.Installment)
	}
	if s.Installment.Label != "em até 4x de R$ 82,50 sem juros" {
		t.Fatalf("label = %q", s.Installment.Label)
	}
	if s.Cashback != nil {
		t.Fatalf("no cashback expected")
	}
}

func TestSummaryCashback(t *testing.T) {
	items := []Item{{ID: "a", Name: "A", Price: 80, Quantity: 1}}
	s := Summarize(items, &CashbackInfo{Amount: 100})
	if s.Cashback == nil || s.Cashback.Applied != 80 || s.Cashback.FinalPrice != 0 {
		t.Fatalf("unexpected cashback %+v", s.Cashback)
	}
	if s.Installment != nil {
		t.Fatalf("no installment below 200")
	}

	s = Summarize(items, &CashbackInfo{Amount: 0})
	if s.Cashback != nil {
		t.Fatalf("zero balance must not apply")
	}
}

func TestEmptySummary(t *testing.T) {
	s := New("token-0001").Summary()
	if s.Total != 0 || s.Count != 0 || len(s.Lines) != 0 || s.Installment != nil {
		t.Fatalf("unexpected %+v", s)
	}
}
