package webserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/maudia1/site/config"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUserKey  = "admin_user"
	adminTokenKey = "admin_token"
	realmHeader   = `Basic realm="Admin Area"`
)

var ErrAdminDisabled = errors.New("admin access disabled")

// AdminClaims are carried by tokens issued from the login endpoint
type AdminClaims struct {
	jwt.RegisteredClaims
}

type adminAuth struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	jwt      echo.MiddlewareFunc
}

func newAdminAuth(cfg config.AdminConfig, secret string) *adminAuth {
	ttl := time.Duration(cfg.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	// tokens outlive a restart only with a configured secret
	if strings.TrimSpace(secret) == "" {
		secret = common.UUID() + common.UUID()
		if cfg.Password != "" {
			zap.L().Warn("web.secret is not set, admin tokens are signed with a per-process key",
				zap.String("namespace", "webserver"))
		}
	}
	a := &adminAuth{
		username: cfg.Username,
		password: cfg.Password,
		secret:   []byte(secret),
		ttl:      ttl,
	}
	a.jwt = echojwt.WithConfig(echojwt.Config{
		SigningKey: a.secret,
		ContextKey: adminTokenKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
		SuccessHandler: func(c echo.Context) {
			if tok, ok := c.Get(adminTokenKey).(*jwt.Token); ok {
				if claims, ok := tok.Claims.(*AdminClaims); ok {
					c.Set(adminUserKey, claims.Subject)
				}
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthorized(c)
		},
	})
	return a
}

func (a *adminAuth) enabled() bool {
	return a.username != "" && a.password != ""
}

// checkCredentials compares in constant time; a bcrypt hash is accepted as the configured password
func (a *adminAuth) checkCredentials(user, pass string) bool {
	if !a.enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.username)) == 1
	var passOK bool
	if strings.HasPrefix(a.password, "$2a$") || strings.HasPrefix(a.password, "$2b$") || strings.HasPrefix(a.password, "$2y$") {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.password), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(a.password)) == 1
	}
	return userOK && passOK
}

func (a *adminAuth) issueToken(user string) (string, time.Time, error) {
	if !a.enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	now := time.Now()
	exp := now.Add(a.ttl)
	claims := AdminClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign admin token")
	}
	return signed, exp, nil
}

func (a *adminAuth) parseToken(raw string) (string, bool) {
	claims := new(AdminClaims)
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", false
	}
	return claims.Subject, true
}

func bearer(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, realmHeader)
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"error":   "unauthorized",
		"message": "Authentication required",
	})
}

// middleware accepts Basic credentials or a Bearer token from the login endpoint
func (a *adminAuth) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	viaToken := a.jwt(next)
	return func(c echo.Context) error {
		if !a.enabled() {
			return unauthorized(c)
		}
		if _, ok := bearer(c); ok {
			return viaToken(c)
		}
		if user, pass, ok := c.Request().BasicAuth(); ok && a.checkCredentials(user, pass) {
			c.Set(adminUserKey, user)
			return next(c)
		}
		return unauthorized(c)
	}
}

// IsAdmin reports whether the request carries valid admin credentials, without rejecting it
func IsAdmin(c echo.Context) bool {
	if u, ok := c.Get(adminUserKey).(string); ok && u != "" {
		return true
	}
	if server == nil || !server.auth.enabled() {
		return false
	}
	if raw, ok := bearer(c); ok {
		_, valid := server.auth.parseToken(raw)
		return valid
	}
	user, pass, ok := c.Request().BasicAuth()
	return ok && server.auth.checkCredentials(user, pass)
}

// AdminUser is the authenticated admin name, if any
func AdminUser(c echo.Context) string {
	u, _ := c.Get(adminUserKey).(string)
	return u
}

// CheckCredentials validates a username and password against the admin configuration
func CheckCredentials(user, pass string) bool {
	return server != nil && server.auth.checkCredentials(user, pass)
}

// IssueAdminToken signs a bearer token for user
func IssueAdminToken(user string) (string, time.Time, error) {
	if server == nil {
		return "", time.Time{}, ErrAdminDisabled
	}
	return server.auth.issueToken(user)
}

// AdminOnly guards non-API routes such as the admin page
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return server.auth.middleware(next)
}
