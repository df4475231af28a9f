package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// Pipeline turns raw search pages into a deduplicated, filtered candidate
// list. Dedup is scoped to one Collect call; cross-run dedup is the
// contacted set's job.
type Pipeline struct {
	source ports.ListingSource
	log    zerolog.Logger
}

func NewPipeline(source ports.ListingSource, log zerolog.Logger) *Pipeline {
	return &Pipeline{source: source, log: log}
}

// CollectResult carries the candidates plus the counters the run record
// reports on.
type CollectResult struct {
	Offers             []domain.Listing
	RawCount           int
	PagesFetched       int
	RemovedTimeLimited int
}

// Collect walks the search pages in order until the page limit is reached,
// a page comes back empty, the filtered target is reached or a fetch
// fails. A fetch failure returns the partial result together with the
// error so the caller can both report it and dispatch what was gathered.
func (p *Pipeline) Collect(ctx context.Context, cityID string, criteria domain.Criteria, target int) (CollectResult, error) {
	var result CollectResult
	seen := make(map[string]struct{})

	maxPages := criteria.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		listings, err := p.source.GetOffers(ctx, domain.OfferQuery{
			CityID:     cityID,
			Categories: criteria.Categories,
			MaxRent:    criteria.MaxRent,
			MinSize:    criteria.MinSize,
			Page:       page,
			Limit:      criteria.PageSize,
		})
		if err != nil {
			return result, fmt.Errorf("collect offers: %w", err)
		}
		if len(listings) == 0 {
			p.log.Debug().Int("page", page).Msg("empty page, stopping pagination")
			break
		}
		result.PagesFetched++

		for _, listing := range listings {
			id := listing.ID()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			result.RawCount++

			if !criteria.IncludeTimeLimit && isTimeLimited(listing) {
				result.RemovedTimeLimited++
				continue
			}
			if !matchesDistrict(listing, criteria.Districts) {
				continue
			}

			result.Offers = append(result.Offers, listing)
			if target > 0 && len(result.Offers) >= target {
				p.log.Debug().Int("target", target).Msg("filtered target reached")
				return result, nil
			}
		}
	}

	return result, nil
}
