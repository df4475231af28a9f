package wgapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

func jwtWithClaims(t *testing.T, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func newMobileClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	client, err := New(domain.AuthModeMobile, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewRejectsInvalidMode(t *testing.T) {
	t.Parallel()

	_, err := New(domain.AuthMode("desktop"))
	require.ErrorIs(t, err, domain.ErrInvalidAuthMode)
}

func TestMobileLoginParsesJWTToken(t *testing.T) {
	t.Parallel()

	token := jwtWithClaims(t, map[string]any{"sub": "12345"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		assert.Equal(t, mobileClientID, r.Header.Get("X-Client-Id"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "tenant@example.com", payload["login_email_username"])
		assert.Equal(t, "hunter2", payload["login_password"])

		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "php-1"})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detail": map[string]any{
				"token":         token,
				"refresh_token": "refresh-1",
				"dev_ref_no":    "dev-1",
			},
		})
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Login(context.Background(), "tenant@example.com", "hunter2", "", nil))

	session := client.Export()
	assert.Equal(t, domain.AuthModeMobile, session.Mode)
	assert.Equal(t, token, session.AccessToken)
	assert.Equal(t, "12345", session.UserID)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.Equal(t, "dev-1", session.DevRefNo)
	assert.Equal(t, "php-1", session.CookieSessionID)
	assert.True(t, session.Authenticated())
}

func TestMobileLoginLegacyResponseShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detail": map[string]any{
				"access_token":  "legacy-token",
				"refresh_token": "legacy-refresh",
				"user_id":       float64(990),
				"dev_ref_no":    "dev-9",
			},
		})
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Login(context.Background(), "a@b.c", "pw", "", nil))

	session := client.Export()
	assert.Equal(t, "legacy-token", session.AccessToken)
	assert.Equal(t, "990", session.UserID)
	assert.Equal(t, "legacy-refresh", session.RefreshToken)
}

func TestMobileLoginFailsWithoutToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detail":{}}`))
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	err := client.Login(context.Background(), "a@b.c", "pw", "", nil)
	require.ErrorIs(t, err, domain.ErrLoginFailed)
	assert.False(t, client.Export().Authenticated())
}

func TestUserIDFromToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "42", userIDFromToken(jwtWithClaims(t, map[string]any{"sub": "42"})))
	assert.Equal(t, "77", userIDFromToken(jwtWithClaims(t, map[string]any{"user_id": float64(77)})))
	assert.Equal(t, "", userIDFromToken(jwtWithClaims(t, map[string]any{"aud": "x"})))
	assert.Equal(t, "unknown", userIDFromToken("not-a-jwt"))
	assert.Equal(t, "unknown", userIDFromToken("a.!!!.c"))
}

func TestRequestRefreshesExactlyOnceOn401(t *testing.T) {
	t.Parallel()

	var refreshCalls, detailCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public/offers/55":
			if detailCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 55, "title": "Zimmer"}`))
		case "/api/sessions/users/7":
			refreshCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"detail":{"access_token":"fresh-token","refresh_token":"fresh-refresh","dev_ref_no":"dev-2"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{
		Mode:         domain.AuthModeMobile,
		UserID:       "7",
		AccessToken:  "stale-token",
		RefreshToken: "stale-refresh",
	}))

	listing, err := client.GetOfferDetail(context.Background(), "55")
	require.NoError(t, err)
	assert.Equal(t, "55", listing.ID())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), detailCalls.Load())
	assert.Equal(t, "fresh-token", client.Export().AccessToken)
}

func TestRequestNeverRefreshesTwice(t *testing.T) {
	t.Parallel()

	var refreshCalls, detailCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public/offers/55":
			detailCalls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/sessions/users/7":
			refreshCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"detail":{"access_token":"fresh-token"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{
		Mode:        domain.AuthModeMobile,
		UserID:      "7",
		AccessToken: "stale-token",
	}))

	_, err := client.GetOfferDetail(context.Background(), "55")
	require.Error(t, err)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), detailCalls.Load())
}

func TestMobileContactOfferBuildsStructuredPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(4321), payload["ad_id"])
		assert.Equal(t, float64(0), payload["ad_type"])
		assert.Equal(t, "7", payload["user_id"])
		messages, ok := payload["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 1)
		first, ok := messages[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Hallo Anna", first["content"])
		assert.Equal(t, "text", first["message_type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"content":"Hallo Anna"}]}`))
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "tok"}))

	require.NoError(t, client.ContactOffer(context.Background(), "4321", "Hallo Anna"))

	err := client.ContactOffer(context.Background(), "not-a-number", "Hallo")
	require.Error(t, err)
}

func TestGetOffersEncodesSearchParams(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/asset/offers/", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "0", query.Get("ad_type"))
		assert.Equal(t, "0", query.Get("categories"))
		assert.Equal(t, "90", query.Get("city_id"))
		assert.Equal(t, "1", query.Get("noDeact"))
		assert.Equal(t, "1", query.Get("img"))
		assert.Equal(t, "20", query.Get("limit"))
		assert.Equal(t, "800", query.Get("rMax"))
		assert.Equal(t, "12", query.Get("sMin"))
		assert.Equal(t, "0", query.Get("rent_types"))
		assert.Equal(t, "2", query.Get("page"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_embedded":{"offers":[{"id":"1"},{"offer_id":2}]}}`))
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "tok"}))

	listings, err := client.GetOffers(context.Background(), domain.OfferQuery{
		CityID:     "90",
		Categories: "0",
		MaxRent:    800,
		MinSize:    12,
		Page:       2,
		Limit:      20,
	})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "1", listings[0].ID())
	assert.Equal(t, "2", listings[1].ID())
}

func TestGetOffersEmptyPageIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_embedded":{"offers":[]}}`))
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{Mode: domain.AuthModeMobile, AccessToken: "tok"}))

	listings, err := client.GetOffers(context.Background(), domain.OfferQuery{CityID: "1", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestFindCityNormalizesNumericIDs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/location/cities/names/Hamburg", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_embedded":{"cities":[{"city_id":55,"city_name":"Hamburg"},{"city_id":"56","city_name":"Hamburg-Umland"}]}}`))
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	cities, err := client.FindCity(context.Background(), "Hamburg")
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, domain.City{ID: "55", Name: "Hamburg"}, cities[0])
	assert.Equal(t, domain.City{ID: "56", Name: "Hamburg-Umland"}, cities[1])
}

func TestImportRejectsMismatchedMode(t *testing.T) {
	t.Parallel()

	client, err := New(domain.AuthModeMobile)
	require.NoError(t, err)

	err = client.Import(domain.Session{Mode: domain.AuthModeWeb, AccessToken: "tok"})
	require.ErrorIs(t, err, domain.ErrSessionModeChanged)
	assert.False(t, client.Export().Authenticated())
}

func TestMobileValidateProbesProfile(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusOK)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/users/7", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"user_id":"7"}`))
	})
	mux.HandleFunc("/api/sessions/users/7", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "tok"}))

	assert.True(t, client.Validate(context.Background()))

	status.Store(http.StatusUnauthorized)
	assert.False(t, client.Validate(context.Background()))
}

func TestMobileConversationsListsThreads(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations/user/7", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "de", r.URL.Query().Get("language"))
		assert.Equal(t, "0", r.URL.Query().Get("filter_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_embedded": map[string]any{
				"conversations": []map[string]any{
					{"conversation_id": "c-1", "ad_title": "Zimmer in Altona"},
					{"conversation_id": "c-2", "ad_title": "WG in Eimsbüttel"},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "tok"}))

	conversations, err := client.Conversations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "c-1", conversations[0]["conversation_id"])
	assert.Equal(t, "WG in Eimsbüttel", conversations[1]["ad_title"])
}

func TestMobileValidateRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var profileCalls, refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/users/7", func(w http.ResponseWriter, r *http.Request) {
		profileCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"user_id":"7"}`))
	})
	mux.HandleFunc("/api/sessions/users/7", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detail": map[string]any{
				"access_token":  "fresh-token",
				"refresh_token": "refresh-2",
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newMobileClient(t, server)
	require.NoError(t, client.Import(domain.Session{
		Mode:         domain.AuthModeMobile,
		UserID:       "7",
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
	}))

	assert.True(t, client.Validate(context.Background()))
	assert.Equal(t, int32(2), profileCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "fresh-token", client.Export().AccessToken)
}
