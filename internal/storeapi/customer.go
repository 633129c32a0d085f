package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/internal/pricing"
	"github.com/maudia1/site/internal/webserver"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const minPhoneDigits = 10

type visitorPayload struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

func registerCustomerRoutes() {
	webserver.ApiGET("/cashback", lookupCashback)
	webserver.ApiPOST("/visitors", recordVisitor)
	webserver.ApiGET("/pricing/installments", installments)
}

// findCashback queries the mirror; a disabled or failing mirror yields not found
func findCashback(c echo.Context, phone string) *mirror.CashbackResult {
	ctx := GetAppContext(c)
	res, err := ctx.Mirror().LookupCashback(c.Request().Context(), phone)
	if err != nil {
		if !errors.Is(err, mirror.ErrDisabled) {
			zap.L().Warn("cashback lookup failed", zap.Error(err), zap.String("namespace", "storeapi"))
		}
		return &mirror.CashbackResult{Found: false}
	}
	if res.Found {
		name := ""
		if res.Name != nil {
			name = *res.Name
		}
		ctx.RecordVisitor(phone, name)
	}
	return res
}

func lookupCashback(c echo.Context) error {
	phone := common.Digits(c.QueryParam("phone"))
	if phone == "" {
		return fail(c, http.StatusBadRequest, "missing_phone", "phone is required", nil)
	}
	return ok(c, findCashback(c, phone))
}

func recordVisitor(c echo.Context) error {
	var payload visitorPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
	}
	phone := common.Digits(payload.Phone)
	if len(phone) < minPhoneDigits {
		return fail(c, http.StatusBadRequest, "invalid_phone", "phone must have at least 10 digits", nil)
	}
	GetAppContext(c).RecordVisitor(phone, payload.Name)
	return c.JSON(http.StatusAccepted, map[string]bool{"ok": true})
}

// installments prices an amount with the installment tiers and an optional cashback balance
func installments(c echo.Context) error {
	amount, valid := pricing.ParseAmount(c.QueryParam("amount"))
	if !valid || amount.IsNegative() {
		return fail(c, http.StatusBadRequest, "invalid_amount", "amount must be a non-negative number", nil)
	}
	resp := map[string]interface{}{
		"amount":      pricing.Float(amount),
		"formatted":   pricing.FormatBRL(amount),
		"installment": nil,
		"cashback":    nil,
	}
	if inst, offered := pricing.Installments(amount); offered {
		resp["installment"] = cart.InstallmentView{Count: inst.Count, Value: pricing.Float(inst.Value), Label: inst.Describe()}
	}
	if raw := c.QueryParam("cashback"); raw != "" {
		balance, _ := pricing.ParseAmount(raw)
		if cb, applied := pricing.ApplyCashback(amount, balance); applied {
			resp["cashback"] = cart.CashbackView{Applied: pricing.Float(cb.Applied), FinalPrice: pricing.Float(cb.Final)}
		}
	}
	if raw := c.QueryParam("oldPrice"); raw != "" {
		if old, parsed := pricing.ParseAmount(raw); parsed && old.GreaterThan(decimal.Zero) {
			oldCents := pricing.ToCents(old)
			resp["discount"] = pricing.DiscountPercent(pricing.ToCents(amount), &oldCents)
		}
	}
	return ok(c, resp)
}
