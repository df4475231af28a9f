package toml

import (
	"context"
	"fmt"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// SessionRepository persists the auth session snapshot. Token material is
// written with 0600 permissions.
type SessionRepository struct {
	store store
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(dir string) (*SessionRepository, error) {
	s, err := newStore(dir, sessionFileName)
	if err != nil {
		return nil, err
	}
	return &SessionRepository{store: s}, nil
}

func (r *SessionRepository) Load(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var file sessionFileSchema
	exists, err := r.store.read(&file)
	if err != nil {
		return domain.Session{}, err
	}
	if !exists {
		return domain.Session{}, nil
	}
	if err := validateVersion(sessionFileName, file.Version); err != nil {
		return domain.Session{}, err
	}

	return fromSessionSchema(file.Session), nil
}

func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := domain.ParseAuthMode(string(session.Mode)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	file := sessionFileSchema{
		Version: currentSchemaVersion,
		Session: toSessionSchema(session),
	}
	return r.store.write(file)
}
