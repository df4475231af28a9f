package application

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

func TestSessionServiceReusesValidSnapshot(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{valid: true}
	repo := &fakeSessionRepo{
		session: domain.Session{Mode: domain.AuthModeMobile, UserID: "7", AccessToken: "stored"},
	}
	service := NewSessionService(client, repo, zerolog.Nop())

	require.NoError(t, service.Ensure(context.Background(), "a@b.c", "pw", "", nil))
	assert.True(t, client.imported)
	assert.Zero(t, client.loginCalls)
}

func TestSessionServiceLogsInWhenSnapshotIsStale(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{valid: false}
	repo := &fakeSessionRepo{
		session: domain.Session{Mode: domain.AuthModeMobile, AccessToken: "expired"},
	}
	service := NewSessionService(client, repo, zerolog.Nop())

	require.NoError(t, service.Ensure(context.Background(), "a@b.c", "pw", "", nil))
	assert.Equal(t, 1, client.loginCalls)
	assert.True(t, repo.saved, "fresh session is persisted after login")
	assert.Equal(t, "fresh", repo.session.AccessToken)
}

func TestSessionServiceLogsInWhenSnapshotIsRejected(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{importErr: domain.ErrSessionModeChanged}
	repo := &fakeSessionRepo{
		session: domain.Session{Mode: domain.AuthModeWeb, AccessToken: "other-mode"},
	}
	service := NewSessionService(client, repo, zerolog.Nop())

	require.NoError(t, service.Ensure(context.Background(), "a@b.c", "pw", "", nil))
	assert.Equal(t, 1, client.loginCalls)
}

func TestSessionServiceLoadErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{}
	repo := &fakeSessionRepo{loadErr: errors.New("corrupt file")}
	service := NewSessionService(client, repo, zerolog.Nop())

	require.NoError(t, service.Ensure(context.Background(), "a@b.c", "pw", "", nil))
	assert.Equal(t, 1, client.loginCalls)
}

func TestSessionServiceSurfacesLoginFailure(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{loginErr: domain.ErrLoginFailed}
	service := NewSessionService(client, &fakeSessionRepo{}, zerolog.Nop())

	err := service.Ensure(context.Background(), "a@b.c", "wrong", "", nil)
	require.ErrorIs(t, err, domain.ErrLoginFailed)
}

func TestSessionServiceSaveFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{}
	repo := &fakeSessionRepo{saveErr: errors.New("disk full")}
	service := NewSessionService(client, repo, zerolog.Nop())

	require.NoError(t, service.Ensure(context.Background(), "a@b.c", "pw", "", nil))
}
