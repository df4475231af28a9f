// Package wgapi is an unofficial client for the wg-gesucht.de API. It speaks
// two mutually exclusive login protocols: the mobile-app token endpoint and
// the website's Ajax cookie flow. The protocol is fixed at construction.
package wgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

const (
	defaultBaseURL = "https://www.wg-gesucht.de"

	appVersion     = "1.28.0"
	appPackage     = "com.wggesucht.android"
	mobileClientID = "wg_mobile_app"
	webClientID    = "wg_desktop_website"
	webSMPClient   = "WG-Gesucht"

	mobileUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Google Build/MRA58K; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/74.0.3729.186 Mobile Safari/537.36"
	webUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 1 << 20
)

// authFlow is the protocol-specific half of the client. Exactly one
// implementation is selected when the client is built.
type authFlow interface {
	login(ctx context.Context, email, password, code string, prompt ports.CodePrompt) error
	refresh(ctx context.Context) bool
	validate(ctx context.Context) bool
	contact(ctx context.Context, offerID, message string) error
	conversations(ctx context.Context, page int) ([]map[string]any, error)
	// hydrate rebuilds protocol state (cookie jar) from an imported session.
	hydrate()
}

type Client struct {
	mode       domain.AuthMode
	base       *url.URL
	httpClient *http.Client
	webClient  *http.Client
	flow       authFlow
	session    domain.Session
	timeout    time.Duration
	log        zerolog.Logger
}

var (
	_ ports.AuthClient    = (*Client)(nil)
	_ ports.ListingSource = (*Client)(nil)
)

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func New(mode domain.AuthMode, opts ...Option) (*Client, error) {
	parsedMode, err := domain.ParseAuthMode(string(mode))
	if err != nil {
		return nil, err
	}

	o := options{
		baseURL: defaultBaseURL,
		timeout: defaultRequestTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must use http or https, got %q", o.baseURL)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	webClient := *httpClient
	webClient.Jar = jar

	c := &Client{
		mode:       parsedMode,
		base:       base,
		httpClient: httpClient,
		webClient:  &webClient,
		session:    domain.Session{Mode: parsedMode},
		timeout:    o.timeout,
		log:        o.logger,
	}

	switch parsedMode {
	case domain.AuthModeMobile:
		c.flow = &mobileFlow{c: c}
	case domain.AuthModeWeb:
		c.flow = &webFlow{c: c}
	}

	return c, nil
}

func (c *Client) Mode() domain.AuthMode {
	return c.mode
}

// Login runs the protocol's credential exchange. The verification code (web
// two-factor) may be supplied up front or obtained through the prompt.
func (c *Client) Login(ctx context.Context, email, password, code string, prompt ports.CodePrompt) error {
	return c.flow.login(ctx, email, password, code, prompt)
}

// Export snapshots the session for persistence.
func (c *Client) Export() domain.Session {
	snapshot := c.session
	snapshot.Mode = c.mode
	return snapshot
}

// Import hydrates the client from a persisted snapshot. Snapshots from the
// other auth mode are rejected.
func (c *Client) Import(snapshot domain.Session) error {
	if snapshot.Mode != c.mode {
		return fmt.Errorf("import session for mode %q into %q client: %w", snapshot.Mode, c.mode, domain.ErrSessionModeChanged)
	}
	c.session = snapshot
	c.flow.hydrate()
	return nil
}

// Validate probes the upstream to confirm a restored session is still alive.
func (c *Client) Validate(ctx context.Context) bool {
	if !c.session.Authenticated() {
		return false
	}
	return c.flow.validate(ctx)
}

// apiResponse is a fully drained HTTP response; the body is read within the
// request timeout so callers can parse at leisure.
type apiResponse struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

func (r *apiResponse) ok() bool {
	return r.status >= http.StatusOK && r.status < http.StatusMultipleChoices
}

func (r *apiResponse) snippet() string {
	const max = 200
	text := strings.TrimSpace(string(r.body))
	if len(text) > max {
		text = text[:max]
	}
	return text
}

// apiDo performs a mobile-API request with the full header/cookie dance.
// One 401 triggers one refresh attempt and one replay, never more.
func (c *Client) apiDo(ctx context.Context, method, endpoint string, params url.Values, payload any, retried bool) (*apiResponse, error) {
	endpointURL := strings.TrimRight(c.base.String(), "/") + "/api/" + endpoint
	if len(params) > 0 {
		endpointURL += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, method, endpointURL, payload)
	if err != nil {
		return nil, err
	}
	c.setAPIHeaders(req)

	resp, err := c.drain(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s /api/%s: %w", method, endpoint, err)
	}

	if resp.ok() {
		return resp, nil
	}

	if resp.status == http.StatusUnauthorized && !retried {
		c.log.Debug().Str("endpoint", endpoint).Msg("access token expired, attempting refresh")
		if c.flow.refresh(ctx) {
			return c.apiDo(ctx, method, endpoint, params, payload, true)
		}
		return nil, fmt.Errorf("%s /api/%s: token refresh after 401 failed, re-login needed", method, endpoint)
	}

	return nil, fmt.Errorf("%s /api/%s: status %d: %s", method, endpoint, resp.status, resp.snippet())
}

func (c *Client) setAPIHeaders(req *http.Request) {
	s := c.session

	cookies := make([]string, 0, 5)
	if s.CookieSessionID != "" {
		cookies = append(cookies, "PHPSESSID="+s.CookieSessionID)
	}
	cookies = append(cookies, "X-Client-Id="+mobileClientID)
	if s.RefreshToken != "" {
		cookies = append(cookies, "X-Refresh-Token="+s.RefreshToken)
	}
	if s.AccessToken != "" {
		cookies = append(cookies, "X-Access-Token="+s.AccessToken)
	}
	if s.DevRefNo != "" {
		cookies = append(cookies, "X-Dev-Ref-No="+s.DevRefNo)
	}

	req.Header.Set("X-App-Version", appVersion)
	req.Header.Set("User-Agent", mobileUserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Id", mobileClientID)
	req.Header.Set("Cookie", strings.Join(cookies, "; "))
	req.Header.Set("X-Requested-With", appPackage)

	if s.AccessToken != "" {
		// Both header spellings are required for compatibility.
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
		req.Header.Set("X-Authorization", "Bearer "+s.AccessToken)
	} else {
		req.Header.Set("Origin", "file://")
	}
	if s.UserID != "" {
		req.Header.Set("X-User-Id", s.UserID)
	}
	if s.DevRefNo != "" {
		req.Header.Set("X-Dev-Ref-No", s.DevRefNo)
	}
}

// webRequest describes one Ajax-style request against the website.
type webRequest struct {
	method             string
	path               string // may carry its own query string
	payload            any
	includeAuth        bool
	handleUnauthorized bool
	header             map[string]string
}

func (c *Client) webDo(ctx context.Context, r webRequest, retried bool) (*apiResponse, error) {
	endpointURL := strings.TrimRight(c.base.String(), "/") + r.path

	req, err := c.newRequest(ctx, r.method, endpointURL, r.payload)
	if err != nil {
		return nil, err
	}
	c.setWebHeaders(req, r.includeAuth)
	for key, value := range r.header {
		req.Header.Set(key, value)
	}

	resp, err := c.drain(c.webClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	if resp.status == http.StatusUnauthorized && r.handleUnauthorized && !retried {
		if c.flow.refresh(ctx) {
			r.handleUnauthorized = false
			return c.webDo(ctx, r, true)
		}
	}

	// Non-2xx responses are returned to the caller, which decides whether
	// the status is a validation failure, a challenge or a hard error.
	return resp, nil
}

func (c *Client) setWebHeaders(req *http.Request, includeAuth bool) {
	s := c.session

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Client-Id", webClientID)
	req.Header.Set("X-Smp-Client", webSMPClient)
	req.Header.Set("User-Agent", webUserAgent)

	if !includeAuth {
		return
	}
	if s.UserID != "" {
		req.Header.Set("X-User-Id", s.UserID)
	}
	if s.AccessToken != "" {
		req.Header.Set("X-Authorization", "Bearer "+s.AccessToken)
	}
	if s.DevRefNo != "" {
		req.Header.Set("X-Dev-Ref-No", s.DevRefNo)
	}
}

// webGetPage fetches a plain website page through the cookie jar, without
// the Ajax JSON headers. Used for cookie priming and the scrape probes.
func (c *Client) webGetPage(ctx context.Context, path string) (*apiResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, strings.TrimRight(c.base.String(), "/")+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := c.drain(c.webClient, req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpointURL string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// drain executes the request under the fixed per-request timeout and reads
// the body before the deadline is released.
func (c *Client) drain(client *http.Client, req *http.Request) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &apiResponse{
		status:  resp.StatusCode,
		body:    body,
		cookies: resp.Cookies(),
	}, nil
}

// jarCookie looks up a cookie by name in the web session's jar.
func (c *Client) jarCookie(name string) string {
	if c.webClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.webClient.Jar.Cookies(c.base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func responseCookie(resp *apiResponse, name string) string {
	for _, cookie := range resp.cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
