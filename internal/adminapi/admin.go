package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/internal/webserver"
	"github.com/maudia1/site/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Init registers every admin route. webserver.Init must run first.
func Init() {
	registerProductRoutes()
	registerUploadRoutes()
	registerTransferRoutes()
	registerJobRoutes()
	registerDbmsRoutes()

	webserver.ApiPOST("/admin/login", login)
	webserver.AdminGET("/admin/visitors/summary", visitorsSummary)
	webserver.AdminGET("/admin/metrics/:name", queryMetric)
	webserver.AdminPOST("/admin/mirror/resync", resyncMirror)
}

func login(c echo.Context) error {
	user, pass, hasBasic := c.Request().BasicAuth()
	if !hasBasic {
		var payload loginPayload
		if err := c.Bind(&payload); err != nil {
			return fail(c, http.StatusBadRequest, "invalid_json", "Unable to parse credentials", nil)
		}
		user, pass = strings.TrimSpace(payload.Username), payload.Password
	}
	if !webserver.CheckCredentials(user, pass) {
		zap.L().Warn("admin login rejected", zap.String("user", user), zap.String("ip", c.RealIP()), zap.String("namespace", "adminapi"))
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="Admin Area"`)
		return fail(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials", nil)
	}
	token, exp, err := webserver.IssueAdminToken(user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "server_error", "Unable to issue token", nil)
	}
	return ok(c, map[string]interface{}{"token": token, "expiresAt": exp})
}

func visitorsSummary(c echo.Context) error {
	summary, err := GetAppContext(c).Mirror().VisitorSummary(c.Request().Context())
	if errors.Is(err, mirror.ErrDisabled) {
		return ok(c, map[string]interface{}{"enabled": false})
	}
	if err != nil || summary == nil {
		return fail(c, http.StatusBadGateway, "mirror_unavailable", "Visitor data is unavailable", nil)
	}
	return ok(c, map[string]interface{}{"enabled": true, "summary": summary})
}

func parseTimeParam(raw string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return dateparse.ParseAny(raw)
}

// queryMetric returns samples of a metric; the window defaults to the last 24 hours
func queryMetric(c echo.Context) error {
	now := time.Now()
	start, err := parseTimeParam(c.QueryParam("start"), now.Add(-24*time.Hour))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_range", "Unable to parse start", nil)
	}
	end, err := parseTimeParam(c.QueryParam("end"), now)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_range", "Unable to parse end", nil)
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "invalid_range", "end must be after start", nil)
	}
	points, err := metrics.Query(c.Param("name"), start, end)
	if err != nil {
		return fail(c, http.StatusServiceUnavailable, "metrics_unavailable", err.Error(), nil)
	}
	return ok(c, map[string]interface{}{"name": c.Param("name"), "points": points})
}

func resyncMirror(c echo.Context) error {
	n, err := GetAppContext(c).ResyncMirror(c.Request().Context())
	if errors.Is(err, mirror.ErrDisabled) {
		return fail(c, http.StatusConflict, "mirror_disabled", "Mirror is not configured", nil)
	}
	if err != nil {
		zap.L().Error("mirror resync failed", zap.Error(err), zap.String("namespace", "adminapi"))
		return fail(c, http.StatusBadGateway, "mirror_unavailable", err.Error(), map[string]int{"synced": n})
	}
	return ok(c, map[string]interface{}{"ok": true, "synced": n})
}
