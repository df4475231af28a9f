package wgapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// envelope is the common response wrapper; every field is optional and the
// upstream mixes string and numeric types freely.
type envelope struct {
	Detail   detailPayload    `json:"detail"`
	Embedded embeddedPayload  `json:"_embedded"`
	Messages []map[string]any `json:"messages"`
}

type detailPayload struct {
	Token        any    `json:"token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       any    `json:"user_id"`
	DevRefNo     string `json:"dev_ref_no"`
	CSRFToken    string `json:"csrf_token"`
}

// bearerToken returns the JWT-shaped token field when it is a string.
func (d detailPayload) bearerToken() string {
	token, ok := d.Token.(string)
	if !ok {
		return ""
	}
	return token
}

// conversationList returns the thread entries from whichever slot the
// upstream used; the web inbox endpoint nests them under a top-level
// "messages" key instead of "_embedded".
func (e envelope) conversationList() []map[string]any {
	if len(e.Embedded.Conversations) > 0 {
		return e.Embedded.Conversations
	}
	return e.Messages
}

type embeddedPayload struct {
	Cities        []cityPayload    `json:"cities"`
	Offers        []map[string]any `json:"offers"`
	Conversations []map[string]any `json:"conversations"`
}

type cityPayload struct {
	CityID   any    `json:"city_id"`
	CityName string `json:"city_name"`
}

// parseEnvelope decodes leniently: malformed bodies yield a zero envelope,
// mirroring the "absence, not error" contract of the response layer.
func parseEnvelope(body []byte) envelope {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}
	}
	return env
}

func anyString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	default:
		return ""
	}
}
