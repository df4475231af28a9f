package application

import (
	"context"
	"errors"
	"time"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

func listing(id, title string, extra map[string]any) domain.Listing {
	raw := map[string]any{"id": id, "title": title}
	for k, v := range extra {
		raw[k] = v
	}
	return domain.Listing{Raw: raw}
}

// fakeSource scripts the listing surface: offer pages by page number, an
// optional page that errors, detail payloads and per-offer contact failures.
type fakeSource struct {
	cities     []domain.City
	cityErr    error
	pages      map[int][]domain.Listing
	errOnPage  int
	details    map[string]domain.Listing
	contactErr map[string]error

	cityCalls    int
	offerCalls   int
	detailCalls  int
	contactedIDs []string
	messages     map[string]string
}

func (f *fakeSource) FindCity(context.Context, string) ([]domain.City, error) {
	f.cityCalls++
	return f.cities, f.cityErr
}

func (f *fakeSource) GetOffers(_ context.Context, query domain.OfferQuery) ([]domain.Listing, error) {
	f.offerCalls++
	if f.errOnPage != 0 && query.Page == f.errOnPage {
		return nil, errors.New("upstream search failed")
	}
	return f.pages[query.Page], nil
}

func (f *fakeSource) GetOfferDetail(_ context.Context, offerID string) (domain.Listing, error) {
	f.detailCalls++
	detail, ok := f.details[offerID]
	if !ok {
		return domain.Listing{}, errors.New("offer detail unavailable")
	}
	return detail, nil
}

func (f *fakeSource) ContactOffer(_ context.Context, offerID, message string) error {
	if err := f.contactErr[offerID]; err != nil {
		return err
	}
	f.contactedIDs = append(f.contactedIDs, offerID)
	if f.messages == nil {
		f.messages = make(map[string]string)
	}
	f.messages[offerID] = message
	return nil
}

type fakeContactedRepo struct {
	set     domain.ContactedSet
	saves   int
	saveErr error
}

func (f *fakeContactedRepo) Load(context.Context) (domain.ContactedSet, error) {
	copied := domain.NewContactedSet(f.set.IDs()...)
	return copied, nil
}

func (f *fakeContactedRepo) Save(_ context.Context, set domain.ContactedSet) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.set = domain.NewContactedSet(set.IDs()...)
	return nil
}

type fakeRunLog struct {
	records []domain.RunRecord
}

func (f *fakeRunLog) Append(_ context.Context, record domain.RunRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRunLog) List(_ context.Context, n int) ([]domain.RunRecord, error) {
	if n > 0 && len(f.records) > n {
		return f.records[len(f.records)-n:], nil
	}
	return f.records, nil
}

type fakePersonalizer struct {
	text  string
	err   error
	calls int
}

func (f *fakePersonalizer) Personalize(context.Context, string, domain.ListingFacts, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

type fakeAuthClient struct {
	session    domain.Session
	importErr  error
	loginErr   error
	valid      bool
	loginCalls int
	imported   bool
}

func (f *fakeAuthClient) Login(_ context.Context, _, _, _ string, _ ports.CodePrompt) error {
	f.loginCalls++
	if f.loginErr != nil {
		return f.loginErr
	}
	f.session = domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "fresh"}
	f.valid = true
	return nil
}

func (f *fakeAuthClient) Export() domain.Session {
	return f.session
}

func (f *fakeAuthClient) Import(snapshot domain.Session) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.session = snapshot
	f.imported = true
	return nil
}

func (f *fakeAuthClient) Validate(context.Context) bool {
	return f.valid
}

type fakeSessionRepo struct {
	session domain.Session
	loadErr error
	saveErr error
	saved   bool
}

func (f *fakeSessionRepo) Load(context.Context) (domain.Session, error) {
	return f.session, f.loadErr
}

func (f *fakeSessionRepo) Save(_ context.Context, session domain.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.session = session
	f.saved = true
	return nil
}
