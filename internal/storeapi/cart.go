package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/pricing"
	"github.com/maudia1/site/internal/webserver"
	"github.com/maudia1/site/internal/whatsapp"
	"github.com/maudia1/site/pkg/common"
	"github.com/spf13/cast"
)

type addItemPayload struct {
	ProductID string      `json:"productId" validate:"required"`
	Quantity  interface{} `json:"quantity"`
}

type quantityPayload struct {
	Quantity interface{} `json:"quantity"`
	Delta    interface{} `json:"delta"`
}

type customerPayload struct {
	Phone string `json:"phone"`
}

type quotePayload struct {
	Items    []map[string]interface{} `json:"items"`
	Cashback interface{}              `json:"cashback"`
}

// cartResponse is a cart with its priced summary
type cartResponse struct {
	Token    string             `json:"token"`
	Phone    string             `json:"phone,omitempty"`
	Customer *cart.CashbackInfo `json:"customer"`
	Summary  cart.Summary       `json:"summary"`
}

type checkoutResponse struct {
	URL     string       `json:"url"`
	Message string       `json:"message"`
	Summary cart.Summary `json:"summary"`
}

func registerCartRoutes() {
	webserver.ApiPOST("/cart/quote", quoteCart)

	webserver.ApiGET("/cart/:token", getCart)
	webserver.ApiDELETE("/cart/:token", clearCart)
	webserver.ApiPOST("/cart/:token/items", addCartItem)
	webserver.ApiPATCH("/cart/:token/items/:id", updateCartItem)
	webserver.ApiDELETE("/cart/:token/items/:id", removeCartItem)
	webserver.ApiPUT("/cart/:token/customer", setCartCustomer)
	webserver.ApiPOST("/cart/:token/checkout", checkoutCart)
}

func newCartResponse(c *cart.Cart) cartResponse {
	return cartResponse{Token: c.Token, Phone: c.Phone, Customer: c.Cashback, Summary: c.Summary()}
}

func newCheckoutResponse(co *whatsapp.Checkout) checkoutResponse {
	return checkoutResponse{URL: co.URL, Message: co.Message, Summary: co.Summary}
}

func getCart(c echo.Context) error {
	ct, err := GetAppContext(c).Carts().Get(c.Request().Context(), c.Param("token"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(ct))
}

func clearCart(c echo.Context) error {
	token := c.Param("token")
	if !cart.ValidToken(token) {
		return handleError(c, cart.ErrInvalidToken)
	}
	if err := GetAppContext(c).Carts().Clear(c.Request().Context(), token); err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(cart.New(token)))
}

func addCartItem(c echo.Context) error {
	var payload addItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "missing_fields", "productId is required", err.Error())
	}
	qty := 1.0
	if payload.Quantity != nil {
		qty = cast.ToFloat64(payload.Quantity)
	}
	ct, err := GetAppContext(c).Carts().AddItem(c.Request().Context(), c.Param("token"), payload.ProductID, qty)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(ct))
}

// updateCartItem sets an absolute quantity or applies a delta; reaching zero removes the line
func updateCartItem(c echo.Context) error {
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
	}
	carts := GetAppContext(c).Carts()
	ctx := c.Request().Context()
	token, id := c.Param("token"), c.Param("id")

	var (
		ct  *cart.Cart
		err error
	)
	switch {
	case payload.Quantity != nil:
		qty := cast.ToFloat64(payload.Quantity)
		if qty < 0 {
			qty = 0
		}
		ct, err = carts.SetQuantity(ctx, token, id, qty)
	case payload.Delta != nil:
		ct, err = carts.AdjustQuantity(ctx, token, id, cast.ToInt(payload.Delta))
	default:
		return fail(c, http.StatusBadRequest, "missing_fields", "quantity or delta is required", nil)
	}
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(ct))
}

func removeCartItem(c echo.Context) error {
	ct, err := GetAppContext(c).Carts().RemoveItem(c.Request().Context(), c.Param("token"), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(ct))
}

// setCartCustomer attaches a phone and its cashback balance; an empty phone detaches the customer
func setCartCustomer(c echo.Context) error {
	var payload customerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
	}
	phone := common.Digits(payload.Phone)
	if phone != "" && len(phone) < minPhoneDigits {
		return fail(c, http.StatusBadRequest, "invalid_phone", "phone must have at least 10 digits", nil)
	}

	var info *cart.CashbackInfo
	if phone != "" {
		if res := findCashback(c, phone); res.Found && res.Cashback != nil {
			info = &cart.CashbackInfo{Amount: *res.Cashback}
			if res.Name != nil {
				info.Name = *res.Name
			}
		}
	}
	ct, err := GetAppContext(c).Carts().SetCustomer(c.Request().Context(), c.Param("token"), phone, info)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCartResponse(ct))
}

func checkoutCart(c echo.Context) error {
	ctx := GetAppContext(c)
	ct, err := ctx.Carts().Get(c.Request().Context(), c.Param("token"))
	if err != nil {
		return handleError(c, err)
	}
	co, err := ctx.Checkout().Checkout(ct)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, newCheckoutResponse(co))
}

// quoteCart prices a browser-held cart against the catalog and builds its checkout link
func quoteCart(c echo.Context) error {
	var payload quotePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
	}
	items := make([]cart.Item, 0, len(payload.Items))
	for _, raw := range payload.Items {
		if it, valid := cart.NormalizeItem(raw); valid {
			items = append(items, it)
		}
	}
	ctx := GetAppContext(c)
	items, err := ctx.Carts().Quote(c.Request().Context(), items)
	if err != nil {
		return handleError(c, err)
	}

	var cb *cart.CashbackInfo
	if payload.Cashback != nil {
		if balance, parsed := pricing.ParseAmount(payload.Cashback); parsed && balance.IsPositive() {
			cb = &cart.CashbackInfo{Amount: pricing.Float(balance)}
		}
	}

	resp := map[string]interface{}{"summary": cart.Summarize(items, cb), "checkout": nil}
	if len(items) > 0 {
		co, err := ctx.Checkout().CheckoutItems(items, cb)
		if err != nil {
			return handleError(c, err)
		}
		resp["checkout"] = newCheckoutResponse(co)
	}
	return ok(c, resp)
}
