package domain

import (
	"strconv"
	"strings"
)

// Listing wraps one raw offer object as returned by the upstream search API.
// The upstream schema is unstable, so attribute access goes through ordered
// alias lists instead of fixed field names.
type Listing struct {
	Raw map[string]any
}

var (
	idAliases          = []string{"id", "offer_id"}
	titleAliases       = []string{"title", "offer_title"}
	districtAliases    = []string{"district", "area", "city_quarter", "district_custom", "town_name"}
	availableToAliases = []string{"available_to_date", "available_to", "available_to_date_string"}
	contactAliases     = []string{"user_name", "contact_name"}
)

// ID returns the string-normalized listing identity, or "" when the raw
// payload carries none of the known id fields.
func (l Listing) ID() string {
	return l.First(idAliases...)
}

func (l Listing) Title() string {
	return l.First(titleAliases...)
}

// DistrictText joins every non-empty district-like field with spaces; the
// district filter matches against the combined text.
func (l Listing) DistrictText() string {
	parts := make([]string, 0, len(districtAliases))
	for _, key := range districtAliases {
		if v := stringify(l.Raw[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (l Listing) Duration() string {
	return stringify(l.Raw["duration"])
}

// AvailableTo returns the raw available-to value so callers can distinguish
// numeric epoch fields from formatted date strings.
func (l Listing) AvailableTo() any {
	for _, key := range availableToAliases {
		if v, ok := l.Raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (l Listing) Rent() string {
	return l.First("rent", "rent_costs", "total_costs")
}

func (l Listing) ContactName() string {
	return l.First(contactAliases...)
}

// UserFirstName reads the nested user object carried only by the detail
// endpoint; the search payload keeps the name in flat fields.
func (l Listing) UserFirstName() string {
	user, ok := l.Raw["user"].(map[string]any)
	if !ok {
		return ""
	}
	return stringify(user["first_name"])
}

func (l Listing) Description() string {
	return l.First("description", "freetext_property_description")
}

// First returns the first non-empty value among the given keys, normalized to
// a string.
func (l Listing) First(keys ...string) string {
	for _, key := range keys {
		if v := stringify(l.Raw[key]); v != "" {
			return v
		}
	}
	return ""
}

// stringify renders a raw JSON value the way the upstream formats it in
// string fields: integral floats lose their fraction, nil becomes "".
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

// City is one candidate from the city-name lookup.
type City struct {
	ID   string
	Name string
}

// ListingFacts is the digest of a listing handed to the personalization
// collaborator.
type ListingFacts struct {
	Title       string
	Description string
	District    string
	Rent        string
}
