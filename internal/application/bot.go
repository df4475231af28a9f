package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// minPersonalizedLen guards against degenerate generator output; anything
// shorter falls back to the plain template.
const minPersonalizedLen = 50

// namePlaceholder is substituted with the recipient's first name when the
// template is rendered without the personalizer.
const namePlaceholder = "{name}"

// defaultRecipient addresses the recipient when the listing names nobody.
const defaultRecipient = "du"

// RunOptions is the per-run dispatch configuration.
type RunOptions struct {
	Criteria              domain.Criteria
	Template              string
	DryRun                bool
	MaxMessages           int
	Delay                 time.Duration
	MarkContactedInDryRun bool
}

// Bot runs one acquisition-and-dispatch cycle. Exactly one run record is
// appended per Run call, whether the run succeeds or fails.
type Bot struct {
	source       ports.ListingSource
	pipeline     *Pipeline
	contacted    ports.ContactedRepository
	runs         ports.RunLogRepository
	personalizer ports.Personalizer
	clock        ports.Clock
	log          zerolog.Logger

	cityIDs map[string]string
}

func NewBot(
	source ports.ListingSource,
	pipeline *Pipeline,
	contacted ports.ContactedRepository,
	runs ports.RunLogRepository,
	personalizer ports.Personalizer,
	clock ports.Clock,
	log zerolog.Logger,
) *Bot {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Bot{
		source:       source,
		pipeline:     pipeline,
		contacted:    contacted,
		runs:         runs,
		personalizer: personalizer,
		clock:        clock,
		log:          log,
		cityIDs:      make(map[string]string),
	}
}

// Run executes one full cycle: resolve the city, collect candidates, drop
// already-contacted offers and message the remainder under the per-run message cap.
func (b *Bot) Run(ctx context.Context, opts RunOptions) (domain.RunRecord, error) {
	record := domain.NewRunRecord(b.clock.Now(), opts.DryRun)

	err := b.run(ctx, opts, &record)
	record.End(err == nil, b.clock.Now())

	if appendErr := b.runs.Append(context.WithoutCancel(ctx), record); appendErr != nil {
		b.log.Warn().Err(appendErr).Msg("persist run record")
	}
	return record, err
}

func (b *Bot) run(ctx context.Context, opts RunOptions, record *domain.RunRecord) error {
	cityID, err := b.resolveCity(ctx, opts.Criteria.City)
	if err != nil {
		record.LogError(err.Error(), b.clock.Now())
		return err
	}

	target := opts.Criteria.EffectiveTarget(opts.MaxMessages)
	result, err := b.pipeline.Collect(ctx, cityID, opts.Criteria, target)
	record.OffersFound = result.RawCount
	record.OffersFiltered = len(result.Offers)
	if err != nil {
		// Dispatch whatever was gathered before the failure.
		record.LogError(err.Error(), b.clock.Now())
		b.log.Warn().Err(err).Int("collected", len(result.Offers)).Msg("offer collection stopped early")
	}

	contacted, err := b.contacted.Load(ctx)
	if err != nil {
		return fmt.Errorf("load contacted set: %w", err)
	}

	fresh := make([]domain.Listing, 0, len(result.Offers))
	for _, listing := range result.Offers {
		if !contacted.Contains(listing.ID()) {
			fresh = append(fresh, listing)
		}
	}
	record.OffersNew = len(fresh)

	batch := fresh
	if opts.MaxMessages > 0 && len(batch) > opts.MaxMessages {
		batch = batch[:opts.MaxMessages]
	}

	b.log.Info().
		Int("found", record.OffersFound).
		Int("filtered", record.OffersFiltered).
		Int("new", record.OffersNew).
		Int("dispatching", len(batch)).
		Bool("dry_run", opts.DryRun).
		Msg("dispatching offers")

	for i, listing := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.dispatch(ctx, opts, listing, record, &contacted)

		// No point delaying after the final message of the run.
		if i < len(batch)-1 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Bot) dispatch(ctx context.Context, opts RunOptions, listing domain.Listing, record *domain.RunRecord, contacted *domain.ContactedSet) {
	id := listing.ID()
	title := listing.Title()
	message := b.composeMessage(ctx, opts.Template, listing)

	if opts.DryRun {
		b.log.Info().Str("offer_id", id).Str("title", title).Msg("dry run, message not sent")
		record.LogContact(id, title, true, b.clock.Now())
		if opts.MarkContactedInDryRun {
			b.markContacted(ctx, id, contacted, record)
		}
		return
	}

	if err := b.source.ContactOffer(ctx, id, message); err != nil {
		b.log.Error().Err(err).Str("offer_id", id).Msg("send message")
		record.LogContact(id, title, false, b.clock.Now())
		record.LogError(fmt.Sprintf("contact %s: %v", id, err), b.clock.Now())
		return
	}

	b.log.Info().Str("offer_id", id).Str("title", title).Msg("message sent")
	record.LogContact(id, title, true, b.clock.Now())
	b.markContacted(ctx, id, contacted, record)
}

// markContacted adds the id and persists the whole set immediately, so a
// crash mid-run cannot cause duplicate messages on the next run.
func (b *Bot) markContacted(ctx context.Context, id string, contacted *domain.ContactedSet, record *domain.RunRecord) {
	contacted.Add(id)
	if err := b.contacted.Save(ctx, *contacted); err != nil {
		b.log.Warn().Err(err).Str("offer_id", id).Msg("persist contacted set")
		record.LogError(fmt.Sprintf("persist contacted set: %v", err), b.clock.Now())
	}
}

// composeMessage renders the outreach text. The personalizer is strictly
// best-effort: any failure or an implausibly short result falls back to the
// plain template with the name placeholder substituted.
func (b *Bot) composeMessage(ctx context.Context, template string, listing domain.Listing) string {
	if b.personalizer == nil {
		return strings.ReplaceAll(template, namePlaceholder, firstName(listing.ContactName()))
	}

	facts := domain.ListingFacts{
		Title:       listing.Title(),
		Description: listing.Description(),
		District:    listing.DistrictText(),
		Rent:        listing.Rent(),
	}
	// The search payload rarely carries the description or the nested user
	// object; only the detail endpoint does, so it is fetched solely when a
	// personalizer is configured.
	var detail domain.Listing
	if d, err := b.source.GetOfferDetail(ctx, listing.ID()); err == nil {
		detail = d
		if description := detail.Description(); description != "" {
			facts.Description = description
		}
	} else {
		b.log.Debug().Err(err).Str("offer_id", listing.ID()).Msg("offer detail unavailable")
	}

	name := listing.ContactName()
	if name == "" {
		name = detail.UserFirstName()
	}
	recipient := firstName(name)
	fallback := strings.ReplaceAll(template, namePlaceholder, recipient)

	text, err := b.personalizer.Personalize(ctx, template, facts, recipient)
	if err != nil {
		b.log.Warn().Err(err).Str("offer_id", listing.ID()).Msg("personalization failed, using template")
		return fallback
	}
	if len([]rune(strings.TrimSpace(text))) < minPersonalizedLen {
		b.log.Warn().Str("offer_id", listing.ID()).Msg("personalized message too short, using template")
		return fallback
	}
	return text
}

// resolveCity looks up and caches the upstream city id for a name; the first
// candidate wins.
func (b *Bot) resolveCity(ctx context.Context, city string) (string, error) {
	if id, ok := b.cityIDs[city]; ok {
		return id, nil
	}

	cities, err := b.source.FindCity(ctx, city)
	if err != nil {
		return "", fmt.Errorf("resolve city %q: %w", city, err)
	}
	if len(cities) == 0 || cities[0].ID == "" {
		return "", fmt.Errorf("resolve city %q: %w", city, domain.ErrCityNotFound)
	}

	b.log.Debug().Str("city", city).Str("city_id", cities[0].ID).Str("matched", cities[0].Name).Msg("resolved city")
	b.cityIDs[city] = cities[0].ID
	return cities[0].ID, nil
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return defaultRecipient
	}
	return fields[0]
}

// sleep waits for the duration or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
