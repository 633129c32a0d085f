package webserver

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// storefront pages and the HTML file each one serves
var pages = map[string]string{
	"/catalogo":     "catalog.html",
	"/black-friday": "black-friday.html",
	"/produto":      "produto.html",
}

// RegisterPages mounts uploads, the storefront pages and the admin page, then the public dir
func RegisterPages(publicDir, uploadDir string) {
	e := server.root
	e.Static("/uploads", uploadDir)

	send := func(file string) echo.HandlerFunc {
		full := filepath.Join(publicDir, file)
		return func(c echo.Context) error {
			if _, err := os.Stat(full); err != nil {
				return echo.NewHTTPError(http.StatusNotFound, "Page not found")
			}
			return c.File(full)
		}
	}
	for route, file := range pages {
		e.GET(route, send(file))
		e.GET(route+"/", send(file))
	}
	e.GET("/produto/:id", send("produto.html"))
	e.GET("/admin", send("admin.html"), AdminOnly)
	e.GET("/admin/", send("admin.html"), AdminOnly)
	e.GET("/admin.html", send("admin.html"), AdminOnly)

	if _, err := os.Stat(publicDir); err != nil {
		zap.L().Warn("public dir not found, storefront pages disabled", zap.String("dir", publicDir), zap.String("namespace", "http"))
		return
	}
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  publicDir,
		Index: "index.html",
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/uploads/") || strings.HasPrefix(p, "/admin")
		},
	}))
}
