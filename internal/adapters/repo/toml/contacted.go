package toml

import (
	"context"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// ContactedRepository persists the ids of offers that were already
// messaged. Loading is deliberately forgiving: a missing or malformed file
// yields an empty set, because losing this file must never block a run
// (the worst case is a duplicate message, not a crash).
type ContactedRepository struct {
	store store
}

var _ ports.ContactedRepository = (*ContactedRepository)(nil)

func NewContactedRepository(dir string) (*ContactedRepository, error) {
	s, err := newStore(dir, contactedFileName)
	if err != nil {
		return nil, err
	}
	return &ContactedRepository{store: s}, nil
}

func (r *ContactedRepository) Load(ctx context.Context) (domain.ContactedSet, error) {
	if err := ctx.Err(); err != nil {
		return domain.ContactedSet{}, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var file contactedFileSchema
	if _, err := r.store.read(&file); err != nil {
		return domain.NewContactedSet(), nil
	}
	return domain.NewContactedSet(file.ContactedIDs...), nil
}

func (r *ContactedRepository) Save(ctx context.Context, set domain.ContactedSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	file := contactedFileSchema{
		Version:      currentSchemaVersion,
		ContactedIDs: set.IDs(),
	}
	return r.store.write(file)
}
