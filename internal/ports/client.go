package ports

import (
	"context"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

// CodePrompt asks the operator for a two-factor verification code. Whether a
// prompt is offered at all is caller policy, not a client invariant.
type CodePrompt func() (string, error)

// AuthClient owns the only mutable session and performs the credential
// exchange against the upstream.
type AuthClient interface {
	Login(ctx context.Context, email, password, code string, prompt CodePrompt) error
	Export() domain.Session
	Import(snapshot domain.Session) error
	Validate(ctx context.Context) bool
}

// ListingSource is the authenticated listing surface built on top of the
// auth client.
type ListingSource interface {
	FindCity(ctx context.Context, name string) ([]domain.City, error)
	GetOffers(ctx context.Context, query domain.OfferQuery) ([]domain.Listing, error)
	GetOfferDetail(ctx context.Context, offerID string) (domain.Listing, error)
	ContactOffer(ctx context.Context, offerID, message string) error
}

// Personalizer rewrites a message template around listing facts. Any failure
// must be swallowed by the caller in favor of the plain template.
type Personalizer interface {
	Personalize(ctx context.Context, template string, facts domain.ListingFacts, recipient string) (string, error)
}
