package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/internal/app"
	"github.com/maudia1/site/internal/webserver"
	"github.com/pkg/errors"
)

func registerJobRoutes() {
	webserver.AdminGET("/admin/jobs", listJobs)
	webserver.AdminPOST("/admin/jobs/:name/run", triggerJob)
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// triggerJob runs a scheduled job immediately
func triggerJob(c echo.Context) error {
	err := GetAppContext(c).RunJob(c.Param("name"))
	if errors.Is(err, app.ErrUnknownJob) {
		return fail(c, http.StatusNotFound, "not_found", "Job not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "run_failed", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
