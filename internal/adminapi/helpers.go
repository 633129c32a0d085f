package adminapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/webserver"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorResponse is the error payload shared by every API route
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// PageResponse wraps a paged listing
type PageResponse struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, PageResponse{Data: data, Total: total, Page: page, PageSize: pageSize})
}

// parsePagination reads page and perPage (or pageSize), defaulting to 1 and 20
func parsePagination(c echo.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := 20
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	if ps, err := strconv.Atoi(raw); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetDB(c)
}

func catalogSvc(c echo.Context) *catalog.Service {
	return GetAppContext(c).Catalog()
}

func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(c.Request().Body)
}

// handleCatalogError maps catalog errors to API responses
func handleCatalogError(c echo.Context, err error) error {
	var invalid *catalog.InvalidProductError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, "not_found", "Product not found", nil)
	case errors.Is(err, catalog.ErrMissingFields):
		return fail(c, http.StatusBadRequest, "missing_fields", "name, category, brand and price are required", nil)
	case errors.Is(err, catalog.ErrInvalidPrice):
		return fail(c, http.StatusBadRequest, "invalid_price", "Price must be a non-negative number", nil)
	case errors.Is(err, catalog.ErrProductExists):
		return fail(c, http.StatusConflict, "product_exists", "A product with this id already exists", nil)
	case errors.Is(err, catalog.ErrDuplicateProducts):
		return fail(c, http.StatusBadRequest, "duplicate_products", "The same product is assigned to more than one slot", nil)
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":     "invalid_product",
			"message":   "Product is missing or inactive",
			"slot":      invalid.Slot,
			"productId": invalid.ProductID,
		})
	}
	zap.L().Error("catalog request failed", zap.Error(err), zap.String("path", c.Path()), zap.String("namespace", "adminapi"))
	return fail(c, http.StatusInternalServerError, "server_error", "Unexpected error", nil)
}
