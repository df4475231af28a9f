package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mhameln/wg-inquiry/internal/ports"
)

// SessionService restores a persisted session when it still validates and
// falls back to a fresh credential login otherwise.
type SessionService struct {
	client ports.AuthClient
	repo   ports.SessionRepository
	log    zerolog.Logger
}

func NewSessionService(client ports.AuthClient, repo ports.SessionRepository, log zerolog.Logger) *SessionService {
	return &SessionService{client: client, repo: repo, log: log}
}

// Ensure leaves the client authenticated or returns an error. A broken or
// stale snapshot is never fatal; it just forces the credential path.
func (s *SessionService) Ensure(ctx context.Context, email, password, code string, prompt ports.CodePrompt) error {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored session unreadable, falling back to login")
	} else if snapshot.Authenticated() {
		if err := s.client.Import(snapshot); err != nil {
			s.log.Warn().Err(err).Msg("stored session rejected, falling back to login")
		} else if s.client.Validate(ctx) {
			s.log.Debug().Str("user_id", snapshot.UserID).Msg("reusing stored session")
			return nil
		} else {
			s.log.Info().Msg("stored session no longer valid, logging in again")
		}
	}

	if err := s.client.Login(ctx, email, password, code, prompt); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	if err := s.repo.Save(ctx, s.client.Export()); err != nil {
		// The login itself succeeded; a failed save only costs the next
		// run a re-login.
		s.log.Warn().Err(err).Msg("persist session snapshot")
	}
	return nil
}
