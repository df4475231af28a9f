package domain

import (
	"fmt"
	"strings"
)

// AuthMode selects which upstream login protocol a client speaks. The two
// protocols are mutually exclusive and a session minted by one must never be
// reused by the other.
type AuthMode string

const (
	AuthModeMobile AuthMode = "mobile"
	AuthModeWeb    AuthMode = "web"
)

func ParseAuthMode(raw string) (AuthMode, error) {
	mode := AuthMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case AuthModeMobile, AuthModeWeb:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAuthMode, raw)
}

// Session holds everything the upstream hands out after a login. All fields
// are empty until a login populates them.
type Session struct {
	Mode            AuthMode
	UserID          string
	AccessToken     string
	RefreshToken    string
	DevRefNo        string
	CSRFToken       string
	CookieSessionID string
}

// Authenticated reports whether the session carries a usable access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}
