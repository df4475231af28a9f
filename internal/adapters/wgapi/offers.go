package wgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

// FindCity resolves a city name to a ranked list of candidates; callers
// typically take the first match.
func (c *Client) FindCity(ctx context.Context, name string) ([]domain.City, error) {
	resp, err := c.apiDo(ctx, http.MethodGet, "location/cities/names/"+url.PathEscape(name), nil, nil, false)
	if err != nil {
		return nil, fmt.Errorf("find city %q: %w", name, err)
	}

	entries := parseEnvelope(resp.body).Embedded.Cities
	cities := make([]domain.City, 0, len(entries))
	for _, entry := range entries {
		cities = append(cities, domain.City{
			ID:   anyString(entry.CityID),
			Name: entry.CityName,
		})
	}
	return cities, nil
}

// GetOffers fetches one page of the offer search. An empty page with a nil
// error is the natural end of pagination; an error is a failed fetch.
func (c *Client) GetOffers(ctx context.Context, query domain.OfferQuery) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("ad_type", "0")
	params.Set("categories", query.Categories)
	params.Set("city_id", query.CityID)
	params.Set("noDeact", "1")
	params.Set("img", "1")
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("rMax", strconv.Itoa(query.MaxRent))
	params.Set("sMin", strconv.Itoa(query.MinSize))
	params.Set("rent_types", query.Categories)
	params.Set("page", strconv.Itoa(query.Page))

	resp, err := c.apiDo(ctx, http.MethodGet, "asset/offers/", params, nil, false)
	if err != nil {
		return nil, fmt.Errorf("get offers page %d: %w", query.Page, err)
	}

	raw := parseEnvelope(resp.body).Embedded.Offers
	listings := make([]domain.Listing, 0, len(raw))
	for _, entry := range raw {
		listings = append(listings, domain.Listing{Raw: entry})
	}
	return listings, nil
}

func (c *Client) GetOfferDetail(ctx context.Context, offerID string) (domain.Listing, error) {
	resp, err := c.apiDo(ctx, http.MethodGet, "public/offers/"+url.PathEscape(offerID), nil, nil, false)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get offer detail %s: %w", offerID, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.body, &raw); err != nil {
		return domain.Listing{}, fmt.Errorf("get offer detail %s: decode response: %w", offerID, err)
	}
	return domain.Listing{Raw: raw}, nil
}

// ContactOffer submits an outreach message through the mode's send path.
func (c *Client) ContactOffer(ctx context.Context, offerID, message string) error {
	return c.flow.contact(ctx, offerID, message)
}

// Conversations lists the account's message threads.
func (c *Client) Conversations(ctx context.Context, page int) ([]map[string]any, error) {
	return c.flow.conversations(ctx, page)
}
