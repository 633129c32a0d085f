package adminapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	excelize "github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/pricing"
	"github.com/maudia1/site/internal/webserver"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// productRecord is one spreadsheet row; prices are decimal currency
type productRecord struct {
	ID            string `csv:"id"`
	Name          string `csv:"name"`
	Subtitle      string `csv:"subtitle"`
	Price         string `csv:"price"`
	OldPrice      string `csv:"old_price"`
	PriceTwo      string `csv:"price_two"`
	Category      string `csv:"category"`
	Brand         string `csv:"brand"`
	Tags          string `csv:"tags"`
	Image         string `csv:"image"`
	Images        string `csv:"images"`
	Description   string `csv:"description"`
	Specs         string `csv:"specs"`
	IsActive      string `csv:"is_active"`
	IsBlackFriday string `csv:"is_black_friday"`
	CreatedAt     string `csv:"created_at"`
}

var recordHeader = []string{
	"id", "name", "subtitle", "price", "old_price", "price_two", "category", "brand", "tags",
	"image", "images", "description", "specs", "is_active", "is_black_friday", "created_at",
}

func registerTransferRoutes() {
	webserver.AdminGET("/admin/products/export", exportProducts)
	webserver.AdminPOST("/admin/products/import", importProducts)
}

func centsString(c *int64) string {
	if c == nil {
		return ""
	}
	return pricing.FromCents(*c).StringFixed(2)
}

func toRecord(p domain.Product) productRecord {
	return productRecord{
		ID:            p.ID,
		Name:          p.Name,
		Subtitle:      p.Subtitle,
		Price:         pricing.FromCents(p.Price).StringFixed(2),
		OldPrice:      centsString(p.OldPrice),
		PriceTwo:      centsString(p.PriceTwo),
		Category:      p.Category,
		Brand:         p.Brand,
		Tags:          p.Tags,
		Image:         p.Image,
		Images:        p.Images,
		Description:   p.Description,
		Specs:         p.Specs,
		IsActive:      fmt.Sprint(p.IsActive),
		IsBlackFriday: fmt.Sprint(p.IsBlackFriday),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (r productRecord) values() []string {
	return []string{
		r.ID, r.Name, r.Subtitle, r.Price, r.OldPrice, r.PriceTwo, r.Category, r.Brand, r.Tags,
		r.Image, r.Images, r.Description, r.Specs, r.IsActive, r.IsBlackFriday, r.CreatedAt,
	}
}

func optionalCents(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, ok := pricing.ParseAmount(raw)
	if !ok || d.IsNegative() {
		return nil, errors.Errorf("invalid amount %q", raw)
	}
	if d.IsZero() {
		return nil, nil
	}
	c := pricing.ToCents(d)
	return &c, nil
}

func fromRecord(r productRecord) (domain.Product, error) {
	name, category := strings.TrimSpace(r.Name), strings.TrimSpace(r.Category)
	if name == "" || category == "" {
		return domain.Product{}, errors.New("name and category are required")
	}
	price, ok := pricing.ParseAmount(r.Price)
	if !ok || price.IsNegative() {
		return domain.Product{}, errors.Errorf("invalid price %q", r.Price)
	}
	oldPrice, err := optionalCents(r.OldPrice)
	if err != nil {
		return domain.Product{}, err
	}
	priceTwo, err := optionalCents(r.PriceTwo)
	if err != nil {
		return domain.Product{}, err
	}
	active := true
	if v, ok := common.ParseFlag(r.IsActive); ok {
		active = v
	}
	black, _ := common.ParseFlag(r.IsBlackFriday)

	p := domain.Product{
		ID:            strings.TrimSpace(r.ID),
		Name:          name,
		Subtitle:      strings.TrimSpace(r.Subtitle),
		Price:         pricing.ToCents(price),
		OldPrice:      oldPrice,
		PriceTwo:      priceTwo,
		Category:      category,
		Brand:         strings.TrimSpace(r.Brand),
		Tags:          r.Tags,
		Image:         r.Image,
		Images:        common.IfEmptyStr(strings.TrimSpace(r.Images), "[]"),
		Description:   r.Description,
		Specs:         common.IfEmptyStr(strings.TrimSpace(r.Specs), "{}"),
		IsActive:      active,
		IsBlackFriday: black,
	}
	if s := strings.TrimSpace(r.CreatedAt); s != "" {
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return domain.Product{}, errors.Errorf("invalid created_at %q", s)
		}
		p.CreatedAt = t
	}
	return p, nil
}

// ErrInvalidFormat is returned by WriteProducts for formats other than csv and xlsx
var ErrInvalidFormat = errors.New("invalid_format")

// WriteProducts writes products as csv (default) or xlsx
func WriteProducts(w io.Writer, format string, products []domain.Product) error {
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, toRecord(p))
	}
	switch strings.ToLower(format) {
	case "xlsx", "excel":
		return writeXlsx(w, records)
	case "", "csv":
		return gocsv.Marshal(&records, w)
	}
	return ErrInvalidFormat
}

func exportProducts(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	ext, contentType := "csv", "text/csv; charset=utf-8"
	switch format {
	case "xlsx", "excel":
		ext, contentType = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "", "csv":
	default:
		return fail(c, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx", nil)
	}

	products, err := catalogSvc(c).All(c.Request().Context())
	if err != nil {
		return handleCatalogError(c, err)
	}
	name := "products-" + time.Now().Format("20060102-150405") + "." + ext
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	return WriteProducts(c.Response(), format, products)
}

func writeXlsx(w io.Writer, records []productRecord) error {
	const sheet = "Sheet1"
	xlsx := excelize.NewFile()
	for col, h := range recordHeader {
		xlsx.SetCellValue(sheet, excelize.ToAlphaString(col)+"1", h)
	}
	for i, r := range records {
		row := fmt.Sprint(i + 2)
		for col, v := range r.values() {
			xlsx.SetCellValue(sheet, excelize.ToAlphaString(col)+row, v)
		}
	}
	return xlsx.Write(w)
}

// importProducts upserts products from a CSV upload (multipart "file") or a raw CSV body
func importProducts(c echo.Context) error {
	var src io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid_file", "Unable to read upload", err.Error())
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request().Body
	}

	var records []productRecord
	if err := gocsv.Unmarshal(src, &records); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_csv", "Unable to parse CSV", err.Error())
	}
	products := make([]domain.Product, 0, len(records))
	for i, r := range records {
		p, err := fromRecord(r)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid_row", "Invalid product row",
				map[string]interface{}{"line": i + 2, "error": err.Error()})
		}
		products = append(products, p)
	}
	n, err := catalogSvc(c).Import(c.Request().Context(), products)
	if err != nil {
		return handleCatalogError(c, err)
	}
	zap.L().Info("products imported", zap.Int("count", n), zap.String("user", webserver.AdminUser(c)), zap.String("namespace", "adminapi"))
	return ok(c, map[string]interface{}{"ok": true, "imported": n})
}
