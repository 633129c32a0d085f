package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/maudia1/site/internal/app"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const appContextKey = "appctx"

// WebServer owns the echo instance and the route groups handlers register into
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
	auth   *adminAuth
}

var server *WebServer

// Init builds the web server for appCtx and makes it the target of the route helpers
func Init(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(cfg.Web.CorsOrigin),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if cfg.Web.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Web.BodyLimit))
	}
	e.Use(requestLogger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	})

	s := &WebServer{
		root:   e,
		api:    e.Group("/api"),
		appCtx: appCtx,
		auth:   newAdminAuth(cfg.Admin, cfg.Web.Secret),
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "time": time.Now().Format(time.RFC3339)})
	})
	server = s
	return s
}

func corsOrigins(origin string) []string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("namespace", "http"),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	})
}

// httpErrorHandler renders echo errors in the API error shape
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled error", zap.Error(err), zap.String("path", c.Path()), zap.String("namespace", "http"))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"error":   errorCode(code),
		"message": msg,
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusBadRequest:
		return "bad_request"
	default:
		return "server_error"
	}
}

// Echo exposes the underlying echo instance
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}

// Start listens on the configured address until ctx is cancelled
func (s *WebServer) Start(ctx context.Context) error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		host := cfg.Host
		if host == "0.0.0.0" || host == "" {
			host = "localhost"
		}
		url := cfg.PublicURL
		if url == "" {
			url = fmt.Sprintf("http://%s:%d", host, cfg.Port)
		}
		zap.L().Info("web server listening", zap.String("addr", addr), zap.String("url", url), zap.String("namespace", "http"))
		errCh <- s.root.Start(addr)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.root.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PATCH(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// Admin routes live under /api like the public ones, guarded per route
// so unmatched /api paths still answer 404 instead of 401.

func AdminGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h, server.auth.middleware)
}

func AdminPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h, server.auth.middleware)
}

func AdminPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h, server.auth.middleware)
}

func AdminDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h, server.auth.middleware)
}
