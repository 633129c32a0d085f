package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/webserver"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorResponse is the error payload shared by every API route
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

// handleError maps catalog and cart errors to API responses
func handleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, "not_found", "Product not found", nil)
	case errors.Is(err, cart.ErrInvalidToken):
		return fail(c, http.StatusBadRequest, "invalid_token", "Cart token must be 8-64 letters, digits, '-' or '_'", nil)
	case errors.Is(err, cart.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "item_not_found", "Item is not in the cart", nil)
	case errors.Is(err, cart.ErrUnavailable):
		return fail(c, http.StatusUnprocessableEntity, "product_unavailable", "Product is missing or inactive", nil)
	case errors.Is(err, cart.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "empty_cart", "Cart is empty", nil)
	}
	zap.L().Error("store request failed", zap.Error(err), zap.String("path", c.Path()), zap.String("namespace", "storeapi"))
	return fail(c, http.StatusInternalServerError, "server_error", "Unexpected error", nil)
}

// Init registers the public API routes. webserver.Init must run first.
func Init() {
	registerCatalogRoutes()
	registerCustomerRoutes()
	registerCartRoutes()
}
