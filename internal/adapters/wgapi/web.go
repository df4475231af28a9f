package wgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

const (
	webLoginPage    = "/mein-wg-gesucht-login.html"
	webSessionsAjax = "/ajax/sessions.php?action="
	webContactAjax  = "/ajax/conversations.php?action=conversations"
	webInboxAjax    = "/ajax/conversations.php?action=all-conversations-notifications"
)

// syncProbePaths are authenticated pages scraped for the user id and CSRF
// token when the Ajax responses leave them blank.
var syncProbePaths = []string{
	"/nachrichten.html",
	"/mein-wg-gesucht.html",
	"/mein-wg-gesucht-profil.html",
}

var userIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\buser_id\b\s*[:=]\s*['"]?(\d+)`),
	regexp.MustCompile(`data-user-id="(\d+)"`),
}

var csrfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`name="csrf_token"[^>]*value="([^"]+)"`),
	regexp.MustCompile(`data-csrf_token="([^"]+)"`),
}

// webFlow speaks the website's Ajax session protocol: cookie-borne tokens,
// an optional two-factor challenge and scrape probes for missing state.
type webFlow struct {
	c          *Client
	loginToken string
}

func (w *webFlow) login(ctx context.Context, email, password, code string, prompt ports.CodePrompt) error {
	w.reset()

	// Prime the session cookies before posting credentials.
	if _, err := w.c.webGetPage(ctx, webLoginPage); err != nil {
		w.c.log.Warn().Err(err).Msg("cookie priming request failed")
	}

	payload := map[string]any{
		"login_email_username":  email,
		"login_password":        password,
		"login_form_auto_login": "0",
		"display_language":      "de",
	}
	resp, err := w.c.webDo(ctx, webRequest{
		method:  http.MethodPost,
		path:    webSessionsAjax + "login",
		payload: payload,
		header: map[string]string{
			"Origin":  w.c.base.String(),
			"Referer": w.c.base.String() + webLoginPage,
		},
	}, false)
	if err != nil {
		return fmt.Errorf("web login: %w", err)
	}

	if resp.status == http.StatusAccepted {
		return w.handleChallenge(ctx, resp, code, prompt)
	}

	if !resp.ok() {
		return fmt.Errorf("web login: %w: status %d: %s", domain.ErrLoginFailed, resp.status, resp.snippet())
	}
	return w.finishLogin(ctx, resp)
}

// handleChallenge deals with the two-factor step: a 202 response carries a
// challenge token that must be echoed back together with the verification
// code.
func (w *webFlow) handleChallenge(ctx context.Context, resp *apiResponse, code string, prompt ports.CodePrompt) error {
	w.loginToken = parseEnvelope(resp.body).Detail.bearerToken()
	if w.loginToken == "" {
		return fmt.Errorf("web login: %w: challenge response carried no token", domain.ErrLoginFailed)
	}

	if code == "" && prompt != nil {
		prompted, err := prompt()
		if err != nil {
			return fmt.Errorf("web login: prompt verification code: %w", err)
		}
		code = prompted
	}
	if code == "" {
		return fmt.Errorf("web login: %w", domain.ErrVerificationNeeded)
	}

	return w.verify(ctx, code)
}

func (w *webFlow) verify(ctx context.Context, code string) error {
	if w.loginToken == "" {
		return fmt.Errorf("web login verification: no pending challenge token")
	}

	resp, err := w.c.webDo(ctx, webRequest{
		method: http.MethodPost,
		path:   webSessionsAjax + "verify_login",
		payload: map[string]any{
			"token":             w.loginToken,
			"verification_code": code,
		},
		header: map[string]string{"Origin": w.c.base.String()},
	}, false)
	if err != nil {
		return fmt.Errorf("web login verification: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("web login verification: %w: status %d: %s", domain.ErrLoginFailed, resp.status, resp.snippet())
	}

	w.loginToken = ""
	return w.finishLogin(ctx, resp)
}

// finishLogin extracts tokens from the response and cookie jar, falls back
// to one refresh attempt and then to page scraping for stragglers.
func (w *webFlow) finishLogin(ctx context.Context, resp *apiResponse) error {
	w.absorbTokens(resp.body)
	if !w.c.session.Authenticated() {
		w.refresh(ctx)
	}
	if w.c.session.UserID == "" || w.c.session.CSRFToken == "" {
		w.syncFromPages(ctx)
	}

	if !w.c.session.Authenticated() {
		return fmt.Errorf("web login: %w: no access token after token extraction", domain.ErrLoginFailed)
	}

	w.c.session.CookieSessionID = w.c.jarCookie("PHPSESSID")
	w.c.log.Info().Str("user_id", w.c.session.UserID).Msg("logged in via web ajax flow")
	return nil
}

func (w *webFlow) refresh(ctx context.Context) bool {
	for _, action := range []string{"refresh_tokens", "refresh"} {
		for _, includeAuth := range []bool{true, false} {
			resp, err := w.c.webDo(ctx, webRequest{
				method:      http.MethodPut,
				path:        webSessionsAjax + action,
				includeAuth: includeAuth,
			}, true)
			if err != nil || !resp.ok() {
				continue
			}
			w.absorbTokens(resp.body)
			if w.c.session.Authenticated() {
				return true
			}
		}
	}
	return false
}

// validate treats the inbox-notifications Ajax call as a liveness check:
// any well-formed response means the restored session is still trusted.
func (w *webFlow) validate(ctx context.Context) bool {
	resp, err := w.c.webDo(ctx, webRequest{
		method:             http.MethodGet,
		path:               webInboxAjax,
		includeAuth:        true,
		handleUnauthorized: true,
	}, false)
	if err != nil || !resp.ok() {
		return false
	}
	return json.Valid(resp.body)
}

func (w *webFlow) contact(ctx context.Context, offerID, message string) error {
	adID, err := strconv.Atoi(offerID)
	if err != nil {
		return fmt.Errorf("contact offer: non-numeric offer id %q", offerID)
	}

	base := map[string]any{
		"ad_type": 0,
		"ad_id":   adID,
	}
	if w.c.session.UserID != "" {
		base["user_id"] = w.c.session.UserID
	}
	if w.c.session.CSRFToken != "" {
		base["csrf_token"] = w.c.session.CSRFToken
	}

	structured := clonePayload(base)
	structured["messages"] = []map[string]any{{"content": message, "message_type": "text"}}
	freetext := clonePayload(base)
	freetext["nachricht_freitext"] = message

	header := map[string]string{
		"Origin":  w.c.base.String(),
		"Referer": fmt.Sprintf("%s/%s.html", w.c.base.String(), offerID),
	}

	var lastErr error
	for _, payload := range []map[string]any{structured, freetext} {
		resp, err := w.c.webDo(ctx, webRequest{
			method:             http.MethodPost,
			path:               webContactAjax,
			payload:            payload,
			includeAuth:        true,
			handleUnauthorized: true,
			header:             header,
		}, false)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.ok() {
			return nil
		}
		// A validation failure means this payload shape was rejected; any
		// other status aborts without trying the remaining shape.
		if resp.status != http.StatusBadRequest {
			return fmt.Errorf("contact offer %s: status %d: %s", offerID, resp.status, resp.snippet())
		}
		lastErr = fmt.Errorf("contact offer %s: status %d: %s", offerID, resp.status, resp.snippet())
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("contact offer %s: all payload shapes rejected", offerID)
	}
	return lastErr
}

func (w *webFlow) conversations(ctx context.Context, _ int) ([]map[string]any, error) {
	resp, err := w.c.webDo(ctx, webRequest{
		method:             http.MethodGet,
		path:               webInboxAjax,
		includeAuth:        true,
		handleUnauthorized: true,
	}, false)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("list conversations: status %d: %s", resp.status, resp.snippet())
	}
	return parseEnvelope(resp.body).conversationList(), nil
}

// absorbTokens merges tokens from a response body and then fills remaining
// blanks from the cookie jar.
func (w *webFlow) absorbTokens(body []byte) {
	detail := parseEnvelope(body).Detail
	s := &w.c.session

	if detail.AccessToken != "" {
		s.AccessToken = detail.AccessToken
	}
	if detail.RefreshToken != "" {
		s.RefreshToken = detail.RefreshToken
	}
	if id := anyString(detail.UserID); id != "" {
		s.UserID = id
	}
	if detail.DevRefNo != "" {
		s.DevRefNo = detail.DevRefNo
	}
	if detail.CSRFToken != "" {
		s.CSRFToken = detail.CSRFToken
	}

	if s.AccessToken == "" {
		s.AccessToken = w.c.jarCookie("X-Access-Token")
	}
	if s.RefreshToken == "" {
		s.RefreshToken = w.c.jarCookie("X-Refresh-Token")
	}
	if s.DevRefNo == "" {
		s.DevRefNo = w.c.jarCookie("X-Dev-Ref-No")
	}
	if s.UserID == "" {
		s.UserID = w.c.jarCookie("X-User-Id")
	}
	if s.CSRFToken == "" {
		if v := w.c.jarCookie("csrf_token"); v != "" {
			s.CSRFToken = v
		} else {
			s.CSRFToken = w.c.jarCookie("X-CSRF-Token")
		}
	}
	if s.CookieSessionID == "" {
		s.CookieSessionID = w.c.jarCookie("PHPSESSID")
	}
}

// syncFromPages probes known authenticated pages and scrapes the user id
// and CSRF token out of the markup; the first match for each field wins.
func (w *webFlow) syncFromPages(ctx context.Context) {
	for _, path := range syncProbePaths {
		resp, err := w.c.webGetPage(ctx, path)
		if err != nil || resp.status != http.StatusOK {
			continue
		}
		text := string(resp.body)

		if w.c.session.UserID == "" {
			for _, pattern := range userIDPatterns {
				if match := pattern.FindStringSubmatch(text); match != nil {
					w.c.session.UserID = match[1]
					break
				}
			}
		}
		if w.c.session.CSRFToken == "" {
			for _, pattern := range csrfPatterns {
				if match := pattern.FindStringSubmatch(text); match != nil {
					w.c.session.CSRFToken = match[1]
					break
				}
			}
		}

		if w.c.session.UserID != "" && w.c.session.CSRFToken != "" {
			return
		}
	}
}

// reset drops all web auth state so sessions never mix.
func (w *webFlow) reset() {
	w.c.session = domain.Session{Mode: domain.AuthModeWeb}
	w.loginToken = ""
	if jar, err := cookiejar.New(nil); err == nil {
		w.c.webClient.Jar = jar
	}
}

// hydrate mirrors an imported session snapshot into the cookie jar.
func (w *webFlow) hydrate() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}

	s := w.c.session
	cookies := make([]*http.Cookie, 0, 6)
	add := func(name, value string) {
		if value != "" {
			cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
		}
	}
	add("PHPSESSID", s.CookieSessionID)
	add("X-Access-Token", s.AccessToken)
	add("X-Refresh-Token", s.RefreshToken)
	add("X-Dev-Ref-No", s.DevRefNo)
	add("X-User-Id", s.UserID)
	add("X-Client-Id", webClientID)

	jar.SetCookies(w.c.base, cookies)
	w.c.webClient.Jar = jar
}

func clonePayload(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
