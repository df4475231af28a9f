package wgapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// mobileFlow speaks the mobile-app session endpoint: an opaque (usually
// JWT-shaped) bearer token plus refresh/device fields.
type mobileFlow struct {
	c *Client
}

func (m *mobileFlow) login(ctx context.Context, email, password, _ string, _ ports.CodePrompt) error {
	payload := map[string]any{
		"login_email_username": email,
		"login_password":       password,
		"client_id":            mobileClientID,
		"display_language":     "de",
	}

	resp, err := m.c.apiDo(ctx, http.MethodPost, "sessions", nil, payload, false)
	if err != nil {
		return fmt.Errorf("mobile login: %w", err)
	}

	detail := parseEnvelope(resp.body).Detail
	session := domain.Session{Mode: domain.AuthModeMobile}

	switch {
	case detail.bearerToken() != "":
		session.AccessToken = detail.bearerToken()
		session.CookieSessionID = responseCookie(resp, "PHPSESSID")
		session.UserID = userIDFromToken(session.AccessToken)
		session.RefreshToken = detail.RefreshToken
		session.DevRefNo = detail.DevRefNo
	case detail.AccessToken != "":
		// Legacy response shape with explicit token fields.
		session.AccessToken = detail.AccessToken
		session.RefreshToken = detail.RefreshToken
		session.UserID = anyString(detail.UserID)
		session.DevRefNo = detail.DevRefNo
		session.CookieSessionID = responseCookie(resp, "PHPSESSID")
	}

	if !session.Authenticated() {
		return fmt.Errorf("mobile login: %w: response carried no access token", domain.ErrLoginFailed)
	}

	m.c.session = session
	m.c.log.Info().Str("user_id", session.UserID).Msg("logged in via mobile api")
	return nil
}

func (m *mobileFlow) refresh(ctx context.Context) bool {
	s := m.c.session
	payload := map[string]any{
		"grant_type":       "refresh_token",
		"access_token":     s.AccessToken,
		"refresh_token":    s.RefreshToken,
		"client_id":        mobileClientID,
		"dev_ref_no":       s.DevRefNo,
		"display_language": "de",
	}

	resp, err := m.c.apiDo(ctx, http.MethodPost, "sessions/users/"+s.UserID, nil, payload, true)
	if err != nil {
		m.c.log.Warn().Err(err).Msg("mobile token refresh failed")
		return false
	}

	detail := parseEnvelope(resp.body).Detail
	if detail.AccessToken == "" {
		return false
	}

	m.c.session.AccessToken = detail.AccessToken
	m.c.session.RefreshToken = detail.RefreshToken
	m.c.session.DevRefNo = detail.DevRefNo
	return true
}

func (m *mobileFlow) validate(ctx context.Context) bool {
	// The profile probe goes through the normal 401-refresh path, so a
	// restored snapshot with an expired access token but a live refresh
	// token still validates instead of forcing a credential login.
	resp, err := m.c.apiDo(ctx, http.MethodGet, "public/users/"+m.c.session.UserID, nil, nil, false)
	return err == nil && resp.ok()
}

func (m *mobileFlow) contact(ctx context.Context, offerID, message string) error {
	adID, err := strconv.Atoi(offerID)
	if err != nil {
		return fmt.Errorf("contact offer: non-numeric offer id %q", offerID)
	}

	payload := map[string]any{
		"user_id": m.c.session.UserID,
		"ad_type": 0,
		"ad_id":   adID,
		"messages": []map[string]any{
			{"content": message, "message_type": "text"},
		},
	}

	if _, err := m.c.apiDo(ctx, http.MethodPost, "conversations", nil, payload, false); err != nil {
		return fmt.Errorf("contact offer %s: %w", offerID, err)
	}
	return nil
}

func (m *mobileFlow) conversations(ctx context.Context, page int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", "25")
	params.Set("language", "de")
	params.Set("filter_type", "0")

	resp, err := m.c.apiDo(ctx, http.MethodGet, "conversations/user/"+m.c.session.UserID, params, nil, false)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return parseEnvelope(resp.body).conversationList(), nil
}

func (m *mobileFlow) hydrate() {}

// userIDFromToken extracts the user identifier from a JWT payload segment.
// Decode failures still leave the token usable; the id degrades to a
// sentinel.
func userIDFromToken(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return "unknown"
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		if decoded, err = base64.RawStdEncoding.DecodeString(parts[1]); err != nil {
			return "unknown"
		}
	}

	var claims struct {
		Sub    any `json:"sub"`
		UserID any `json:"user_id"`
	}
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return "unknown"
	}

	if id := anyString(claims.Sub); id != "" {
		return id
	}
	return anyString(claims.UserID)
}
