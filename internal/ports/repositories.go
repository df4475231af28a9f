package ports

import (
	"context"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

type SessionRepository interface {
	// Load returns the zero session when no snapshot exists.
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}

type ContactedRepository interface {
	// Load never fails on a missing or malformed file; it returns an empty
	// set instead.
	Load(ctx context.Context) (domain.ContactedSet, error)
	Save(ctx context.Context, set domain.ContactedSet) error
}

type RunLogRepository interface {
	Append(ctx context.Context, record domain.RunRecord) error
	// List returns up to n records, most recent last.
	List(ctx context.Context, n int) ([]domain.RunRecord, error)
}
