package storeapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/webserver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fakeMirror answers cashback lookups for one customer and records visitor writes
type fakeMirror struct {
	mu       sync.Mutex
	visitors []string
}

func (f *fakeMirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/vw_cashback"):
		if r.URL.Query().Get("numero") == "eq.61992074182" {
			_, _ = io.WriteString(w, `[{"numero":"61992074182","nome":"Ana","cashback":50}]`)
			return
		}
		_, _ = io.WriteString(w, "[]")
	case strings.HasSuffix(r.URL.Path, "/contador") && r.Method != http.MethodGet:
		f.mu.Lock()
		f.visitors = append(f.visitors, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "[]")
	default:
		_, _ = io.WriteString(w, "[]")
	}
}

func (f *fakeMirror) waitVisitor(t *testing.T, digits string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		for _, v := range f.visitors {
			if strings.Contains(v, digits) {
				f.mu.Unlock()
				return
			}
		}
		f.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("visitor %s was not recorded", digits)
}

type testEnv struct {
	t   *testing.T
	app *app.Application
	srv *webserver.WebServer
}

func newTestEnv(t *testing.T, mirrorURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = dir
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "s3cret"
	cfg.Cache.Type = "memory"
	cfg.Checkout.WhatsappNumber = "+55 (61) 99207-4182"
	cfg.Mirror.URL = mirrorURL
	if mirrorURL != "" {
		cfg.Mirror.Key = "anon"
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "store.db")+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	a := app.NewApplication(&cfg)
	if err := a.OverrideDB(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Release)
	s := webserver.Init(a)
	Init()
	return &testEnv{t: t, app: a, srv: s}
}

func (e *testEnv) request(method, path, body string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.SetBasicAuth("admin", "s3cret")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) product(in catalog.ProductInput) string {
	e.t.Helper()
	id, err := e.app.Catalog().Create(context.Background(), in)
	if err != nil {
		e.t.Fatalf("Create: %v", err)
	}
	return id
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, fragments ...string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
	for _, f := range fragments {
		if !strings.Contains(rec.Body.String(), f) {
			t.Fatalf("body %s does not contain %s", rec.Body.String(), f)
		}
	}
}

func TestProductReads(t *testing.T) {
	e := newTestEnv(t, "")
	cam := e.product(catalog.ProductInput{"name": "Câmera", "category": "Foto", "brand": "Nikon", "price": 4599.9, "isBlackFriday": true})
	off := e.product(catalog.ProductInput{"name": "Antiga", "category": "Foto", "brand": "Kodak", "price": 99.0, "isActive": false})

	var rows []map[string]interface{}
	rec := e.request(http.MethodGet, "/api/products", "", false)
	expect(t, rec, http.StatusOK)
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 1 || rows[0]["id"] != cam {
		t.Fatalf("public listing = %s", rec.Body.String())
	}

	rec = e.request(http.MethodGet, "/api/products?includeInactive=1", "", true)
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 2 {
		t.Fatalf("admin listing = %s", rec.Body.String())
	}

	expect(t, e.request(http.MethodGet, "/api/products/"+cam, "", false), http.StatusOK, `"name":"Câmera"`)
	expect(t, e.request(http.MethodGet, "/api/products/"+off, "", false), http.StatusNotFound, `"not_found"`)
	expect(t, e.request(http.MethodGet, "/api/products/"+off, "", true), http.StatusOK, `"isActive":false`)
}

func TestSlotReads(t *testing.T) {
	e := newTestEnv(t, "")
	id := e.product(catalog.ProductInput{"name": "Fone", "category": "Áudio", "brand": "JBL", "price": 199.0})
	if _, err := e.app.Catalog().SetFeatured(context.Background(), []interface{}{nil, id}); err != nil {
		t.Fatal(err)
	}

	expect(t, e.request(http.MethodGet, "/api/featured", "", false), http.StatusOK, `"slot":2,"productId":"`+id+`"`)
	expect(t, e.request(http.MethodGet, "/api/featured-products", "", false), http.StatusOK, `"id":"`+id+`"`)
	expect(t, e.request(http.MethodGet, "/api/home", "", false), http.StatusOK, `"slot":6`)
	expect(t, e.request(http.MethodGet, "/api/home-products", "", false), http.StatusOK, `[]`)
	expect(t, e.request(http.MethodGet, "/api/hero", "", false), http.StatusOK, `"productId":null`)
	expect(t, e.request(http.MethodGet, "/api/hero-product", "", false), http.StatusOK, `null`)
}

func TestCashbackLookup(t *testing.T) {
	mirror := &fakeMirror{}
	srv := httptest.NewServer(mirror)
	defer srv.Close()
	e := newTestEnv(t, srv.URL)

	expect(t, e.request(http.MethodGet, "/api/cashback?phone=abc", "", false), http.StatusBadRequest, `"missing_phone"`)
	expect(t, e.request(http.MethodGet, "/api/cashback?phone=(61)%2099207-4182", "", false), http.StatusOK,
		`"found":true`, `"name":"Ana"`, `"cashback":50`)
	mirror.waitVisitor(t, "61992074182")
	expect(t, e.request(http.MethodGet, "/api/cashback?phone=11900000000", "", false), http.StatusOK, `"found":false`)
}

func TestCashbackWithoutMirror(t *testing.T) {
	e := newTestEnv(t, "")
	expect(t, e.request(http.MethodGet, "/api/cashback?phone=61992074182", "", false), http.StatusOK, `"found":false`)
}

func TestRecordVisitor(t *testing.T) {
	mirror := &fakeMirror{}
	srv := httptest.NewServer(mirror)
	defer srv.Close()
	e := newTestEnv(t, srv.URL)

	expect(t, e.request(http.MethodPost, "/api/visitors", `{"phone":"12345"}`, false), http.StatusBadRequest, `"invalid_phone"`)
	expect(t, e.request(http.MethodPost, "/api/visitors", `{"phone":"(61) 98888-7777","name":"Bia"}`, false), http.StatusAccepted)
	mirror.waitVisitor(t, "61988887777")
}

func TestInstallments(t *testing.T) {
	e := newTestEnv(t, "")
	expect(t, e.request(http.MethodGet, "/api/pricing/installments?amount=429.9", "", false), http.StatusOK,
		`"count":5`, `"value":85.98`, `"label":"em até 5x de R$ 85,98 sem juros"`)
	expect(t, e.request(http.MethodGet, "/api/pricing/installments?amount=150&cashback=200", "", false), http.StatusOK,
		`"installment":null`, `"applied":150`, `"finalPrice":0`)
	expect(t, e.request(http.MethodGet, "/api/pricing/installments?amount=80&oldPrice=100", "", false), http.StatusOK, `"discount":20`)
	expect(t, e.request(http.MethodGet, "/api/pricing/installments?amount=abc", "", false), http.StatusBadRequest, `"invalid_amount"`)
}

func TestCartFlow(t *testing.T) {
	e := newTestEnv(t, "")
	cam := e.product(catalog.ProductInput{"name": "Câmera", "category": "Foto", "brand": "Nikon", "price": 100.0, "priceTwo": 180.0})
	const base = "/api/cart/browser-token-1"

	expect(t, e.request(http.MethodGet, "/api/cart/bad", "", false), http.StatusBadRequest, `"invalid_token"`)
	expect(t, e.request(http.MethodGet, base, "", false), http.StatusOK, `"count":0`)
	expect(t, e.request(http.MethodPost, base+"/checkout", "", false), http.StatusBadRequest, `"empty_cart"`)
	expect(t, e.request(http.MethodPost, base+"/items", `{"productId":"ghost"}`, false), http.StatusUnprocessableEntity, `"product_unavailable"`)
	expect(t, e.request(http.MethodPost, base+"/items", `{}`, false), http.StatusBadRequest, `"missing_fields"`)

	expect(t, e.request(http.MethodPost, base+"/items", `{"productId":"`+cam+`","quantity":2}`, false), http.StatusOK,
		`"count":2`, `"total":180`)
	expect(t, e.request(http.MethodPatch, base+"/items/"+cam, `{"delta":1}`, false), http.StatusOK, `"count":3`, `"total":280`)
	expect(t, e.request(http.MethodPatch, base+"/items/"+cam, `{"quantity":500}`, false), http.StatusOK, `"count":99`)
	expect(t, e.request(http.MethodPatch, base+"/items/ghost", `{"delta":1}`, false), http.StatusNotFound, `"item_not_found"`)
	expect(t, e.request(http.MethodPatch, base+"/items/"+cam, `{"quantity":3}`, false), http.StatusOK, `"count":3`)

	rec := e.request(http.MethodPost, base+"/checkout", "", false)
	expect(t, rec, http.StatusOK, `"url":"https://wa.me/5561992074182?text=`)
	var co checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &co); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(co.Message, "- Câmera (x3)") || !strings.Contains(co.Message, "Total: R$ 280,00") {
		t.Fatalf("message = %q", co.Message)
	}

	expect(t, e.request(http.MethodDelete, base+"/items/"+cam, "", false), http.StatusOK, `"count":0`)
	expect(t, e.request(http.MethodDelete, base+"/items/"+cam, "", false), http.StatusNotFound, `"item_not_found"`)
	expect(t, e.request(http.MethodPost, base+"/items", `{"productId":"`+cam+`"}`, false), http.StatusOK, `"count":1`)
	expect(t, e.request(http.MethodDelete, base, "", false), http.StatusOK, `"count":0`)
	expect(t, e.request(http.MethodGet, base, "", false), http.StatusOK, `"count":0`)
}

func TestCartCustomerCashback(t *testing.T) {
	mirror := &fakeMirror{}
	srv := httptest.NewServer(mirror)
	defer srv.Close()
	e := newTestEnv(t, srv.URL)
	cam := e.product(catalog.ProductInput{"name": "Câmera", "category": "Foto", "brand": "Nikon", "price": 100.0})
	const base = "/api/cart/customer-token"

	expect(t, e.request(http.MethodPost, base+"/items", `{"productId":"`+cam+`"}`, false), http.StatusOK)
	expect(t, e.request(http.MethodPut, base+"/customer", `{"phone":"123"}`, false), http.StatusBadRequest, `"invalid_phone"`)
	expect(t, e.request(http.MethodPut, base+"/customer", `{"phone":"61 99207-4182"}`, false), http.StatusOK,
		`"phone":"61992074182"`, `"customer":{"name":"Ana","amount":50}`, `"applied":50`, `"finalPrice":50`)

	rec := e.request(http.MethodPost, base+"/checkout", "", false)
	expect(t, rec, http.StatusOK)
	var co checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &co); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(co.Message, "Com cashback: R$ 50,00") {
		t.Fatalf("message = %q", co.Message)
	}
}

func TestQuoteRepricesFromCatalog(t *testing.T) {
	e := newTestEnv(t, "")
	cam := e.product(catalog.ProductInput{"name": "Câmera", "category": "Foto", "brand": "Nikon", "price": 100.0, "priceTwo": 180.0})

	body := `{"items":[{"id":"` + cam + `","name":"forged","price":1,"quantity":2},{"id":"ghost","name":"x","price":5,"quantity":1}],"cashback":"R$ 30,00"}`
	rec := e.request(http.MethodPost, "/api/cart/quote", body, false)
	expect(t, rec, http.StatusOK, `"total":180`, `"applied":30`, `"finalPrice":150`, `"url":"https://wa.me/`)
	if strings.Contains(rec.Body.String(), "forged") || strings.Contains(rec.Body.String(), "ghost") {
		t.Fatalf("quote kept client data: %s", rec.Body.String())
	}

	expect(t, e.request(http.MethodPost, "/api/cart/quote", `{"items":[]}`, false), http.StatusOK, `"checkout":null`, `"total":0`)
}
