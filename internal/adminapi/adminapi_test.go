package adminapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/webserver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testEnv struct {
	t   *testing.T
	app *app.Application
	srv *webserver.WebServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = dir
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "s3cret"
	cfg.Cache.Type = "memory"
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

func (e *testEnv) do(method, path string, body []byte, contentType string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if admin {
		req.SetBasicAuth("admin", "s3cret")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, path, body string, admin bool) *httptest.ResponseRecorder {
	return e.do(method, path, []byte(body), "application/json", admin)
}

func (e *testEnv) createProduct(body string) string {
	e.t.Helper()
	rec := e.doJSON(http.MethodPost, "/api/products", body, true)
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.ID == "" {
		e.t.Fatalf("create body = %s", rec.Body.String())
	}
	return out.ID
}

func TestProductWritesRequireAdmin(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(http.MethodPost, "/api/products", `{"name":"Fone"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("missing WWW-Authenticate header")
	}
}

func TestProductLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.doJSON(http.MethodPost, "/api/products", `{"name":"Fone","category":"Áudio"}`, true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"missing_fields"`) {
		t.Fatalf("missing fields = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPost, "/api/products", `{"name":`, true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_json"`) {
		t.Fatalf("invalid json = %d %s", rec.Code, rec.Body.String())
	}

	id := e.createProduct(`{"name":"Fone","category":"Áudio","brand":"JBL","price":199.9}`)

	rec = e.doJSON(http.MethodPut, "/api/products/"+id, `{"price":149.9,"isActive":false}`, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}

	rec = e.doJSON(http.MethodGet, "/api/admin/products?perPage=10", "", true)
	var page struct {
		Data []struct {
			ID       string  `json:"id"`
			Price    float64 `json:"price"`
			IsActive bool    `json:"isActive"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("list body = %s", rec.Body.String())
	}
	if page.Total != 1 || page.Data[0].Price != 149.9 || page.Data[0].IsActive {
		t.Fatalf("unexpected listing %+v", page)
	}

	rec = e.doJSON(http.MethodGet, "/api/admin/products?activeOnly=1", "", true)
	if !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Fatalf("activeOnly listing = %s", rec.Body.String())
	}

	rec = e.doJSON(http.MethodDelete, "/api/products/"+id, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = e.doJSON(http.MethodPut, "/api/products/"+id, `{"price":10}`, true)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"not_found"`) {
		t.Fatalf("update after delete = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSlotWrites(t *testing.T) {
	e := newTestEnv(t)
	a := e.createProduct(`{"name":"A","category":"X","brand":"B","price":10}`)
	b := e.createProduct(`{"name":"B","category":"X","brand":"B","price":20}`)

	rec := e.doJSON(http.MethodPut, "/api/featured", `{"ids":["`+a+`","`+b+`",null]}`, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"productId":"`+b+`"`) {
		t.Fatalf("featured = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPut, "/api/home", `{"ids":["`+a+`","`+a+`"]}`, true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"duplicate_products"`) {
		t.Fatalf("duplicate home = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPut, "/api/hero", `{"productId":"missing"}`, true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_product"`) {
		t.Fatalf("invalid hero = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPut, "/api/hero", `{"productId":"`+a+`"}`, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"productId":"`+a+`"`) {
		t.Fatalf("hero = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSlotWritesRejectMalformedJSON(t *testing.T) {
	e := newTestEnv(t)
	a := e.createProduct(`{"name":"A","category":"X","brand":"B","price":10}`)
	e.doJSON(http.MethodPut, "/api/featured", `{"ids":["`+a+`"]}`, true)
	e.doJSON(http.MethodPut, "/api/home", `{"ids":["`+a+`"]}`, true)
	e.doJSON(http.MethodPut, "/api/hero", `{"productId":"`+a+`"}`, true)

	for _, tc := range []struct{ path, body string }{
		{"/api/featured", `{"ids":["` + a + `"`},
		{"/api/home", `{"ids":`},
		{"/api/hero", `{"productId":`},
	} {
		rec := e.doJSON(http.MethodPut, tc.path, tc.body, true)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_json"`) {
			t.Fatalf("PUT %s %s = %d %s", tc.path, tc.body, rec.Code, rec.Body.String())
		}
	}

	ctx := context.Background()
	featured, _ := e.app.Catalog().Featured(ctx)
	home, _ := e.app.Catalog().Home(ctx)
	hero, _ := e.app.Catalog().Hero(ctx)
	if len(featured) == 0 || featured[0].ProductID == nil || *featured[0].ProductID != a {
		t.Fatalf("featured slot 1 was cleared: %+v", featured)
	}
	if len(home) == 0 || home[0].ProductID == nil || *home[0].ProductID != a {
		t.Fatalf("home slot 1 was cleared: %+v", home)
	}
	if hero == nil || hero.ProductID == nil || *hero.ProductID != a {
		t.Fatalf("hero was cleared: %+v", hero)
	}
}

func multipartFile(t *testing.T, name string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = w.Close()
	return buf.Bytes(), w.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	e := newTestEnv(t)
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

	body, ct := multipartFile(t, "foto.png", png)
	rec := e.do(http.MethodPost, "/api/upload", body, ct, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		URL string `json:"url"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if !strings.HasPrefix(out.URL, "/uploads/") || !strings.HasSuffix(out.URL, ".png") {
		t.Fatalf("url = %q", out.URL)
	}
	stored := filepath.Join(e.app.Config().GetUploadDir(), strings.TrimPrefix(out.URL, "/uploads/"))
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	body, ct = multipartFile(t, "page.html", png)
	rec = e.do(http.MethodPost, "/api/upload", body, ct, true)
	out.URL = ""
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if rec.Code != http.StatusOK || !strings.HasSuffix(out.URL, ".png") {
		t.Fatalf("extension must follow the content, got %d %q", rec.Code, out.URL)
	}

	body, ct = multipartFile(t, "notes.txt", []byte("just some text"))
	rec = e.do(http.MethodPost, "/api/upload", body, ct, true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_file_type"`) {
		t.Fatalf("text upload = %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(http.MethodPost, "/api/upload", nil, "", true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"missing_file"`) {
		t.Fatalf("missing upload = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStoreUploadKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := storeUpload(dir, "a.png", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := storeUpload(dir, "a.png", []byte("second")); err == nil {
		t.Fatalf("existing upload must not be overwritten")
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil || string(data) != "first" {
		t.Fatalf("stored = %q, %v", data, err)
	}
	if err := storeUpload(filepath.Join(dir, "missing"), "b.png", []byte("x")); err == nil {
		t.Fatalf("write into a missing dir should fail")
	}
}

func TestExportImportCSV(t *testing.T) {
	e := newTestEnv(t)
	e.createProduct(`{"name":"Câmera","category":"Foto","brand":"Nikon","price":4599.9,"priceTwo":8999}`)

	rec := e.doJSON(http.MethodGet, "/api/admin/products/export", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	out := rec.Body.String()
	if !strings.HasPrefix(out, "id,name,subtitle,price") || !strings.Contains(out, "4599.90") || !strings.Contains(out, "8999.00") {
		t.Fatalf("csv = %s", out)
	}

	csv := "name,category,brand,price,is_active,is_black_friday,created_at\n" +
		"Tripé,Foto,Manfrotto,\"R$ 1.299,90\",ativo,sim,2024-11-29\n" +
		"Bolsa,Foto,Lowepro,199,0,,\n"
	body, ct := multipartFile(t, "products.csv", []byte(csv))
	rec = e.do(http.MethodPost, "/api/admin/products/import", body, ct, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"imported":2`) {
		t.Fatalf("import = %d %s", rec.Code, rec.Body.String())
	}

	all, err := e.app.Catalog().All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("products = %d", len(all))
	}
	for _, p := range all {
		switch p.Name {
		case "Tripé":
			if p.Price != 129990 || !p.IsActive || p.CreatedAt.Year() != 2024 {
				t.Fatalf("unexpected import %+v", p)
			}
		case "Bolsa":
			if p.IsActive {
				t.Fatalf("Bolsa should be inactive")
			}
		}
	}

	rec = e.do(http.MethodPost, "/api/admin/products/import", []byte("name,category,price\nX,,10\n"), "text/csv", true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_row"`) {
		t.Fatalf("bad row = %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportXlsx(t *testing.T) {
	e := newTestEnv(t)
	e.createProduct(`{"name":"Fone","category":"Áudio","brand":"JBL","price":99}`)
	rec := e.doJSON(http.MethodGet, "/api/admin/products/export?format=xlsx", "", true)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx = %d, %d bytes", rec.Code, rec.Body.Len())
	}
	rec = e.doJSON(http.MethodGet, "/api/admin/products/export?format=pdf", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("pdf = %d", rec.Code)
	}
}

func TestLoginIssuesBearerToken(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(http.MethodPost, "/api/admin/login", `{"username":"admin","password":"nope"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}
	rec = e.doJSON(http.MethodPost, "/api/admin/login", `{"username":"admin","password":"s3cret"}`, false)
	var out struct {
		Token string `json:"token"`
	}
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &out) != nil || out.Token == "" {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	res := httptest.NewRecorder()
	e.srv.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("bearer listing = %d %s", res.Code, res.Body.String())
	}
}

func TestMirrorRoutesWhenDisabled(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(http.MethodGet, "/api/admin/visitors/summary", "", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"enabled":false`) {
		t.Fatalf("summary = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPost, "/api/admin/mirror/resync", "", true)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), `"mirror_disabled"`) {
		t.Fatalf("resync = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricQueryRange(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(http.MethodGet, "/api/admin/metrics/uploads?start=2024-02-01&end=2024-01-01", "", true)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_range"`) {
		t.Fatalf("range = %d %s", rec.Code, rec.Body.String())
	}
}

func TestJobsAndDbms(t *testing.T) {
	e := newTestEnv(t)
	e.createProduct(`{"name":"Fone","category":"Áudio","brand":"JBL","price":99}`)

	rec := e.doJSON(http.MethodGet, "/api/admin/jobs", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodPost, "/api/admin/jobs/nope/run", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job = %d", rec.Code)
	}

	rec = e.doJSON(http.MethodGet, "/api/admin/dbms/tables", "", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `{"name":"products","rowCount":1}`) {
		t.Fatalf("tables = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.doJSON(http.MethodGet, "/api/admin/dbms/serverinfo", "", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"databaseType":"sqlite"`) {
		t.Fatalf("serverinfo = %d %s", rec.Code, rec.Body.String())
	}
}
