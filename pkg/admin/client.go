package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/yrain/smart-cache/pkg/log"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 32 << 20
)

var (
	ErrLoginRejected = errors.New("login rejected")
	ErrNoServer      = errors.New("server url is required")
)

// Options configures a Client.
type Options struct {
	// Server is the base URL of the admin API, e.g. http://host:8080/cache/.
	Server string
	// PathSuffix is appended to every operation path (".json" for the servlet).
	PathSuffix string
	// Cookie is sent verbatim on every request when set.
	Cookie  string
	Timeout time.Duration
	// Language drives namespace and key collation. Defaults to language.Und.
	Language   language.Tag
	Logger     log.Logger
	HTTPClient *http.Client
}

// Client talks to the cache admin endpoints over HTTP.
type Client struct {
	base   *url.URL
	suffix string
	cookie string
	lang   language.Tag
	http   *http.Client
	logger log.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Server) == "" {
		return nil, ErrNoServer
	}
	base, err := url.Parse(opts.Server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", opts.Server)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return &Client{
		base:   base,
		suffix: opts.PathSuffix,
		cookie: opts.Cookie,
		lang:   opts.Language,
		http:   hc,
		logger: log.OrNop(opts.Logger),
	}, nil
}

// Server returns the base URL the client was built for.
func (c *Client) Server() string { return c.base.String() }

func (c *Client) ListNamespaces(ctx context.Context) Result[[]string] {
	r := c.call(ctx, "names", nil)
	if !r.ok {
		return Fail[[]string](r.msg)
	}
	names, err := decodeNames(r.payload)
	if err != nil {
		c.logger.Error("admin response rejected", log.Fields{"op": "names", "err": err.Error()})
		return Fail[[]string]("")
	}
	col := collate.New(c.lang)
	col.SortStrings(names)
	return Result[[]string]{OK: true, Data: names, Msg: r.msg}
}

func (c *Client) ListKeys(ctx context.Context, namespace string) Result[[]KeyEntry] {
	r := c.call(ctx, "keys", url.Values{"name": {namespace}})
	if !r.ok {
		return Fail[[]KeyEntry](r.msg)
	}
	keys, err := decodeKeys(r.payload)
	if err != nil {
		c.logger.Error("admin response rejected", log.Fields{"op": "keys", "err": err.Error()})
		return Fail[[]KeyEntry]("")
	}
	col := collate.New(c.lang)
	sort.SliceStable(keys, func(i, j int) bool {
		return col.CompareString(keys[i].Key, keys[j].Key) < 0
	})
	return Result[[]KeyEntry]{OK: true, Data: keys, Msg: r.msg}
}

func (c *Client) GetLocalValue(ctx context.Context, namespace, key string) Result[Value] {
	r := c.call(ctx, "get", url.Values{"name": {namespace}, "key": {key}})
	if !r.ok {
		return Fail[Value](r.msg)
	}
	return Result[Value]{OK: true, Data: decodeValue(r.payload), Msg: r.msg}
}

func (c *Client) ListHostValues(ctx context.Context, namespace, key string) Result[[]HostRecord] {
	r := c.call(ctx, "fetch", url.Values{"name": {namespace}, "key": {key}})
	if !r.ok {
		return Fail[[]HostRecord](r.msg)
	}
	hosts, err := decodeHosts(r.payload)
	if err != nil {
		c.logger.Error("admin response rejected", log.Fields{"op": "fetch", "err": err.Error()})
		return Fail[[]HostRecord]("")
	}
	col := collate.New(c.lang)
	sort.SliceStable(hosts, func(i, j int) bool {
		return col.CompareString(hosts[i].Identifier(), hosts[j].Identifier()) < 0
	})
	return Result[[]HostRecord]{OK: true, Data: hosts, Msg: r.msg}
}

func (c *Client) DeleteKey(ctx context.Context, namespace, key string) bool {
	return c.call(ctx, "del", url.Values{"name": {namespace}, "key": {key}}).ok
}

func (c *Client) ClearNamespace(ctx context.Context, namespace string) bool {
	return c.call(ctx, "rem", url.Values{"name": {namespace}}).ok
}

func (c *Client) ClearAll(ctx context.Context) bool {
	return c.call(ctx, "cls", nil).ok
}

// Login opens a session on deployments guarded by the servlet login form.
// Session cookies are kept for every later call.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	endpoint := c.base.JoinPath("submitLogin").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.decorate(req, uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || strings.TrimSpace(string(body)) != "success" {
		c.logger.Warn("login rejected", log.Fields{"user": username, "status": resp.StatusCode})
		return fmt.Errorf("%w for user %q", ErrLoginRejected, username)
	}
	c.logger.Info("login accepted", log.Fields{"user": username})
	return nil
}

func (c *Client) endpoint(op string, params url.Values) string {
	u := c.base.JoinPath(op + c.suffix)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c *Client) decorate(req *http.Request, requestID string) {
	req.Header.Set("X-Request-Id", requestID)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

func (c *Client) call(ctx context.Context, op string, params url.Values) reply {
	requestID := uuid.NewString()
	start := time.Now()
	fields := log.Fields{"op": op, "request_id": requestID}
	if ns := params.Get("name"); ns != "" {
		fields["namespace"] = ns
	}
	failed := func(reason string, err error) reply {
		fields["reason"] = reason
		fields["duration_ms"] = time.Since(start).Milliseconds()
		if err != nil {
			fields["err"] = err.Error()
		}
		c.logger.Error("admin call failed", fields)
		return reply{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(op, params), nil)
	if err != nil {
		return failed("request", err)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return failed(classify(err), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return failed("network", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fields["status"] = resp.StatusCode
		return failed("status", nil)
	}
	r, err := unwrap(body)
	if err != nil {
		return failed("decode", err)
	}
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if !r.ok {
		fields["msg"] = r.msg
		c.logger.Warn("admin call rejected", fields)
		return r
	}
	c.logger.Debug("admin call", fields)
	return r
}

// classify buckets a transport error for logging.
func classify(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "i/o timeout") {
		return "network"
	}
	return "transport"
}
