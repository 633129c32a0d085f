package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/webserver"
)

type slotsPayload struct {
	IDs []interface{} `json:"ids"`
}

type heroPayload struct {
	ProductID interface{} `json:"productId"`
}

// registerProductRoutes registers product and slot write endpoints
func registerProductRoutes() {
	webserver.AdminPOST("/products", createProduct)
	webserver.AdminPUT("/products/:id", updateProduct)
	webserver.AdminDELETE("/products/:id", deleteProduct)
	webserver.AdminGET("/admin/products", listProducts)

	webserver.AdminPUT("/featured", setFeatured)
	webserver.AdminPUT("/home", setHome)
	webserver.AdminPUT("/hero", setHero)
}

// listProducts is the paged admin listing; inactive products are included unless activeOnly is set
func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	f := catalog.ParseFilter(c.QueryParams(), true)
	f.IncludeInactive = c.QueryParam("activeOnly") == ""

	rows, err := catalogSvc(c).List(c.Request().Context(), f)
	if err != nil {
		return handleCatalogError(c, err)
	}
	total := len(rows)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return paged(c, rows[start:end], int64(total), page, pageSize)
}

func decodeInput(c echo.Context) (catalog.ProductInput, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	return catalog.DecodeProductInput(body)
}

func createProduct(c echo.Context) error {
	in, err := decodeInput(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse product", err.Error())
	}
	id, err := catalogSvc(c).Create(c.Request().Context(), in)
	if err != nil {
		return handleCatalogError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"id": id})
}

func updateProduct(c echo.Context) error {
	in, err := decodeInput(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse product", err.Error())
	}
	if err := catalogSvc(c).Update(c.Request().Context(), c.Param("id"), in); err != nil {
		return handleCatalogError(c, err)
	}
	return ok(c, map[string]interface{}{"ok": true})
}

func deleteProduct(c echo.Context) error {
	if err := catalogSvc(c).Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleCatalogError(c, err)
	}
	return ok(c, map[string]interface{}{"ok": true})
}

func bindSlots(c echo.Context) ([]interface{}, error) {
	var payload slotsPayload
	if err := c.Bind(&payload); err != nil {
		return nil, err
	}
	return payload.IDs, nil
}

func invalidJSON(c echo.Context) error {
	return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse request", nil)
}

func setFeatured(c echo.Context) error {
	ids, err := bindSlots(c)
	if err != nil {
		return invalidJSON(c)
	}
	slots, err := catalogSvc(c).SetFeatured(c.Request().Context(), ids)
	if err != nil {
		return handleCatalogError(c, err)
	}
	return ok(c, map[string]interface{}{"ok": true, "slots": slots})
}

func setHome(c echo.Context) error {
	ids, err := bindSlots(c)
	if err != nil {
		return invalidJSON(c)
	}
	slots, err := catalogSvc(c).SetHome(c.Request().Context(), ids)
	if err != nil {
		return handleCatalogError(c, err)
	}
	return ok(c, map[string]interface{}{"ok": true, "slots": slots})
}

func setHero(c echo.Context) error {
	var payload heroPayload
	if err := c.Bind(&payload); err != nil {
		return invalidJSON(c)
	}
	id, _ := payload.ProductID.(string)
	hero, err := catalogSvc(c).SetHero(c.Request().Context(), strings.TrimSpace(id))
	if err != nil {
		return handleCatalogError(c, err)
	}
	return ok(c, map[string]interface{}{"ok": true, "productId": hero.ProductID, "product": hero.Product})
}
