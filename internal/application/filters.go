package application

import (
	"regexp"
	"strings"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

// timeLimitKeywords mark a listing as a fixed-term let when they appear in
// the title, regardless of the structured fields.
var timeLimitKeywords = []string{
	"zwischenmiete",
	"zwischenmiet",
	"untermiete",
	"sublet",
	"temporary",
	"befristet",
	"befristung",
	"zeitmiete",
}

// unsetDurations are the duration values the upstream uses for "open-ended".
var unsetDurations = map[string]struct{}{
	"":     {},
	"0":    {},
	"0.0":  {},
	"null": {},
	"none": {},
}

// endDateSentinels are available-to strings that mean "no end date".
var endDateSentinels = map[string]struct{}{
	"":                     {},
	"0":                    {},
	"0.0":                  {},
	"00.00.0000":           {},
	"00.00.0000, 00:00:00": {},
	"null":                 {},
	"none":                 {},
}

// isTimeLimited reports whether a listing is a fixed-term offer. The three
// rules are checked in order: a set duration, a real end date, then the
// title keywords.
func isTimeLimited(listing domain.Listing) bool {
	duration := strings.ToLower(strings.TrimSpace(listing.Duration()))
	if _, unset := unsetDurations[duration]; !unset {
		return true
	}

	if hasRealEndDate(listing.AvailableTo()) {
		return true
	}

	title := strings.ToLower(listing.Title())
	for _, keyword := range timeLimitKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

// hasRealEndDate decides whether an available-to value names an actual date.
// Numeric values are epoch-like and count when positive; strings count
// unless they are one of the placeholder sentinels.
func hasRealEndDate(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case float64:
		return value > 0
	case int:
		return value > 0
	case string:
		normalized := strings.ToLower(strings.TrimSpace(value))
		_, sentinel := endDateSentinels[normalized]
		return !sentinel
	default:
		return false
	}
}

var districtStripPattern = regexp.MustCompile(`[\s.\-]+`)

// normalizeDistrict canonicalizes a district name for substring matching:
// surrounding quotes, whitespace, dots and hyphens are removed and the rest
// lowercased. Umlauts are left as-is; configured names must use the same
// spelling the site does.
func normalizeDistrict(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = districtStripPattern.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// matchesDistrict reports whether the listing's combined district text
// contains any of the wanted districts. An empty want-list matches
// everything; a listing without district text matches nothing.
func matchesDistrict(listing domain.Listing, districts []string) bool {
	if len(districts) == 0 {
		return true
	}

	text := normalizeDistrict(listing.DistrictText())
	if text == "" {
		return false
	}

	for _, district := range districts {
		if want := normalizeDistrict(district); want != "" && strings.Contains(text, want) {
			return true
		}
	}
	return false
}
