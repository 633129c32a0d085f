package storeapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/webserver"
)

func registerCatalogRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)

	webserver.ApiGET("/featured", slotRead((*catalog.Service).Featured))
	webserver.ApiGET("/featured-products", slotRead((*catalog.Service).FeaturedProducts))
	webserver.ApiGET("/home", slotRead((*catalog.Service).Home))
	webserver.ApiGET("/home-products", slotRead((*catalog.Service).HomeProducts))
	webserver.ApiGET("/hero", slotRead((*catalog.Service).Hero))
	webserver.ApiGET("/hero-product", slotRead((*catalog.Service).HeroProduct))
}

// listProducts serves the catalog; inactive products are listed only to an authenticated admin
func listProducts(c echo.Context) error {
	f := catalog.ParseFilter(c.QueryParams(), webserver.IsAdmin(c))
	rows, err := GetAppContext(c).Catalog().List(c.Request().Context(), f)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	p, err := GetAppContext(c).Catalog().Get(c.Request().Context(), c.Param("id"), webserver.IsAdmin(c))
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, p)
}

func slotRead[T any](read func(*catalog.Service, context.Context) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		v, err := read(GetAppContext(c).Catalog(), c.Request().Context())
		if err != nil {
			return handleError(c, err)
		}
		return ok(c, v)
	}
}
