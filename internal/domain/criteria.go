package domain

// Criteria is the immutable per-run search configuration.
type Criteria struct {
	City             string
	Categories       string
	MaxRent          int
	MinSize          int
	Districts        []string
	IncludeTimeLimit bool
	PageSize         int
	MaxPages         int
	// TargetCount stops pagination once that many filtered listings were
	// collected; zero means "fall back to the per-run message cap".
	TargetCount int
}

// EffectiveTarget resolves the filtered-count stop condition, defaulting to
// the per-run message cap when unset.
func (c Criteria) EffectiveTarget(maxMessages int) int {
	if c.TargetCount > 0 {
		return c.TargetCount
	}
	return maxMessages
}

// OfferQuery carries the parameters for one page of the upstream offer
// search.
type OfferQuery struct {
	CityID     string
	Categories string
	MaxRent    int
	MinSize    int
	Page       int
	Limit      int
}
