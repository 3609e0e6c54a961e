// Package zentao is the anti-corruption layer over the ZenTao REST API. It
// owns authentication, retries, wire-shape translation, and the user
// directory; callers only see domain records and *types.Error failures.
package zentao

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/types"
)

const maxBodyBytes = 10 << 20

// Config configures the client.
type Config struct {
	BaseURL        string
	APIPrefix      string
	Timeout        time.Duration // whole call, retries included
	RetryTimes     int
	RetryBackoff   time.Duration
	PageLimit      int
	DirectoryLimit int
	Cache          DirectoryCache
	Transport      http.RoundTripper
}

// DefaultConfig returns the stock client settings for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		APIPrefix:      "/api.php/v1",
		Timeout:        30 * time.Second,
		RetryTimes:     3,
		RetryBackoff:   time.Second,
		PageLimit:      100,
		DirectoryLimit: 1000,
	}
}

// Client talks to one ZenTao instance on behalf of one user.
type Client struct {
	base           *url.URL
	prefix         string
	http           *http.Client
	timeout        time.Duration
	pageLimit      int
	directoryLimit int
	cache          DirectoryCache

	mu    sync.RWMutex
	token string
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("zentao base_url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid zentao base_url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(0)
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	if cfg.DirectoryLimit <= 0 {
		cfg.DirectoryLimit = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		base:   base,
		prefix: "/" + strings.Trim(cfg.APIPrefix, "/"),
		http: &http.Client{
			Jar:       jar,
			Transport: newRetryTransport(cfg.Transport, cfg.RetryTimes, cfg.RetryBackoff),
		},
		timeout:        cfg.Timeout,
		pageLimit:      cfg.PageLimit,
		directoryLimit: cfg.DirectoryLimit,
		cache:          cfg.Cache,
	}, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// rejection marks a failure reported by the server rather than the network.
type rejection struct {
	status int
	reason string
}

func (r *rejection) Error() string {
	return fmt.Sprintf("http %d: %s", r.status, r.reason)
}

func isRejection(err error) bool {
	var r *rejection
	return errors.As(err, &r)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + c.prefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one logical call and returns the top-level fields of a
// status=="success" envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, types.Wrap(types.CodeAPIError, err, "请求编码失败")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, types.Wrap(types.CodeAPIError, err, "")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Token", token)
	}

	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	resp, err := c.http.Do(req)
	timer.StopWithThreshold(5 * time.Second)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	logging.APIDebug("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, raw)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, types.Wrap(types.CodeAPIError, &rejection{status: resp.StatusCode, reason: "malformed JSON"}, "")
	}
	var status string
	if s, ok := fields["status"]; ok {
		_ = json.Unmarshal(s, &status)
	}
	if status != "success" {
		return nil, types.Wrap(types.CodeAPIError, &rejection{status: resp.StatusCode, reason: serverMessage(fields)}, "")
	}
	return fields, nil
}

func transportError(ctx context.Context, err error) *types.Error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.Wrap(types.CodeTimeout, err, "")
	}
	return types.Wrap(types.CodeAPIError, err, "")
}

func statusError(status int, raw []byte) *types.Error {
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)
	rej := &rejection{status: status, reason: serverMessage(fields)}
	switch status {
	case http.StatusUnauthorized:
		return types.Wrap(types.CodeSessionExpired, rej, "")
	case http.StatusForbidden:
		return types.Wrap(types.CodePermissionDenied, rej, "")
	default:
		return types.Wrap(types.CodeAPIError, rej, "")
	}
}

func serverMessage(fields map[string]json.RawMessage) string {
	for _, key := range []string{"message", "error", "reason"} {
		if v, ok := fields[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				return s
			}
			return string(v)
		}
	}
	return "unexpected response"
}

// field decodes one payload key; a missing key is a server rejection.
func field(fields map[string]json.RawMessage, key string, out any) error {
	raw, ok := fields[key]
	if !ok {
		return types.Wrap(types.CodeAPIError, &rejection{status: http.StatusOK, reason: "missing " + key}, "")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.Wrap(types.CodeAPIError, &rejection{status: http.StatusOK, reason: fmt.Sprintf("bad %s: %v", key, err)}, "")
	}
	return nil
}

// relabel keeps transport codes and the auth codes but renames server
// rejections to code with message.
func relabel(err error, code types.ErrorCode, message string) error {
	te, ok := types.As(err)
	if !ok {
		return types.Wrap(code, err, message)
	}
	switch te.Code {
	case types.CodeTimeout, types.CodeSessionExpired, types.CodePermissionDenied:
		return te
	}
	if isRejection(err) {
		return types.Wrap(code, te.Err, message)
	}
	return types.Wrap(te.Code, te.Err, message)
}

// =============================================================================
// SESSION
// =============================================================================

// Token returns the current auth token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Restore re-hydrates auth state from a saved session.
func (c *Client) Restore(token string, cookies map[string]string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if len(cookies) == 0 {
		return
	}
	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.http.Jar.SetCookies(c.base, jarCookies)
}

// Cookies returns the cookies the server has set for this instance.
func (c *Client) Cookies() map[string]string {
	out := make(map[string]string)
	for _, ck := range c.http.Jar.Cookies(c.base) {
		out[ck.Name] = ck.Value
	}
	return out
}

// Login exchanges credentials for a token and loads the user's profile.
func (c *Client) Login(ctx context.Context, account, password string) (*LoginResult, error) {
	fields, err := c.do(ctx, http.MethodPost, "/tokens", nil, loginRequest{Account: account, Password: password})
	if err != nil {
		if types.Is(err, types.CodeTimeout) {
			return nil, err
		}
		return nil, types.Wrap(types.CodeLoginFailed, err, "")
	}
	var token string
	if err := field(fields, "token", &token); err != nil || token == "" {
		return nil, types.New(types.CodeLoginFailed, "")
	}
	c.Restore(token, nil)

	user, err := c.CurrentUser(ctx)
	if err != nil {
		c.Restore("", nil)
		return nil, types.Wrap(types.CodeLoginFailed, err, "登录成功但无法获取用户信息")
	}
	logging.Session("logged in as %s", user.Account)
	return &LoginResult{Token: token, Cookies: c.Cookies(), User: user}, nil
}

// Logout forgets the token and the cached directory.
func (c *Client) Logout(ctx context.Context) {
	c.Restore("", nil)
	c.cache.Invalidate(ctx)
}

// CurrentUser returns the authenticated user. Only a 401 or a success
// envelope without a user means the session is gone; other failures stay
// ApiError or Timeout.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	const msg = "无法获取当前用户信息"
	fields, err := c.do(ctx, http.MethodGet, "/user", nil, nil)
	if err != nil {
		return nil, relabel(err, types.CodeAPIError, msg)
	}
	var w userWire
	if err := field(fields, "user", &w); err != nil {
		return nil, types.Wrap(types.CodeSessionExpired, err, msg)
	}
	if w.Account == "" {
		return nil, types.New(types.CodeSessionExpired, msg)
	}
	u := w.toUser()
	return &u, nil
}

// =============================================================================
// USERS
// =============================================================================

// Users returns the user directory, from cache when possible.
func (c *Client) Users(ctx context.Context) (*Directory, error) {
	if dir, ok := c.cache.Get(ctx); ok {
		return dir, nil
	}
	query := url.Values{"limit": {fmt.Sprint(c.directoryLimit)}}
	fields, err := c.do(ctx, http.MethodGet, "/users", query, nil)
	if err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取用户列表失败")
	}
	var wires []userWire
	if err := field(fields, "users", &wires); err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取用户列表失败")
	}
	users := make([]User, len(wires))
	for i, w := range wires {
		users[i] = w.toUser()
	}
	dir := NewDirectory(users)
	c.cache.Put(ctx, dir)
	logging.APIDebug("cached directory of %d users", len(users))
	return dir, nil
}

// directory is Users with failures downgraded to an empty directory.
func (c *Client) directory(ctx context.Context) *Directory {
	dir, err := c.Users(ctx)
	if err != nil {
		logging.APIWarn("user directory unavailable, references stay unresolved: %v", err)
		return NewDirectory(nil)
	}
	return dir
}

// SearchUsers looks users up by keyword. A server-side rejection yields no
// matches rather than an error.
func (c *Client) SearchUsers(ctx context.Context, keyword string) ([]User, error) {
	query := url.Values{"search": {keyword}, "limit": {"10"}}
	fields, err := c.do(ctx, http.MethodGet, "/users", query, nil)
	if err != nil {
		if isRejection(err) && !types.Is(err, types.CodeSessionExpired) {
			logging.APIWarn("user search for %q rejected: %v", keyword, err)
			return nil, nil
		}
		return nil, relabel(err, types.CodeAPIError, "搜索用户失败")
	}
	var wires []userWire
	if err := field(fields, "users", &wires); err != nil {
		return nil, nil
	}
	users := make([]User, len(wires))
	for i, w := range wires {
		users[i] = w.toUser()
	}
	return users, nil
}
