package mirror

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/maudia1/site/config"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrDisabled = errors.New("mirror disabled")

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to a PostgREST endpoint (Supabase REST). All methods are
// best-effort for callers: they return errors, callers log them and move on.
type Client struct {
	base          string
	key           string
	productsTable string
	visitorsTable string
	cashbackView  string
	timeout       time.Duration
	hc            *http.Client
}

// New builds a client from configuration; a disabled config yields a client whose calls return ErrDisabled
func New(cfg config.MirrorConfig, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		key:           strings.TrimSpace(cfg.Key),
		productsTable: strings.TrimSpace(cfg.ProductsTable),
		visitorsTable: strings.TrimSpace(cfg.VisitorsTable),
		cashbackView:  strings.TrimSpace(cfg.CashbackView),
		timeout:       timeout,
		hc:            hc,
	}
	if cfg.Enabled() {
		c.base = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	}
	if c.cashbackView == "" {
		c.cashbackView = "vw_cashback"
	}
	return c
}

// Enabled reports whether the remote service is configured
func (c *Client) Enabled() bool {
	return c != nil && c.base != "" && c.key != ""
}

func (c *Client) endpoint(table string) string {
	return c.base + "/rest/v1/" + url.PathEscape(table)
}

func (c *Client) headers(prefer string) gout.H {
	h := gout.H{
		"apikey":        c.key,
		"Authorization": "Bearer " + c.key,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
	if prefer != "" {
		h["Prefer"] = prefer
	}
	return h
}

type request struct {
	method string
	table  string
	query  gout.H
	prefer string
	body   interface{}
}

// do executes a request and returns the raw body of a 2xx response
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	var (
		code int
		body []byte
	)
	target := c.endpoint(r.table)
	// a Gout flow holds per-request state, so each call gets its own
	g := gout.New(c.hc)
	flow := g.GET(target)
	switch r.method {
	case http.MethodPost:
		flow = g.POST(target)
	case http.MethodPatch:
		flow = g.PATCH(target)
	case http.MethodDelete:
		flow = g.DELETE(target)
	}
	flow = flow.WithContext(ctx).SetTimeout(c.timeout).SetHeader(c.headers(r.prefer))
	if len(r.query) > 0 {
		flow = flow.SetQuery(r.query)
	}
	if r.body != nil {
		flow = flow.SetJSON(r.body)
	}
	if err := flow.BindBody(&body).Code(&code).Do(); err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.method, r.table)
	}
	if code < 200 || code >= 300 {
		return nil, &StatusError{Method: r.method, Path: r.table, Code: code, Body: truncate(string(body), 256)}
	}
	return body, nil
}

// rows executes a GET and decodes a JSON array of objects
func (c *Client) rows(ctx context.Context, table string, query gout.H) ([]map[string]interface{}, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, table: table, query: query})
	if err != nil {
		return nil, err
	}
	var out []map[string]interface{}
	if len(body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s rows", table)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
