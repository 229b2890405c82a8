package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/takify/backend/domain"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.Session{}}
}

func (r *fakeSessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) Extend(_ context.Context, id string, ttlSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	return nil
}

const testSecret = "test-secret"

func newUseCase() (*UseCase, *fakeUserRepo, *fakeSessionRepo) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	return New(users, sessions, testSecret, "takify", nil), users, sessions
}

func TestLoginRegistersFirstTimeUser(t *testing.T) {
	uc, users, sessions := newUseCase()

	session, token, err := uc.Login(context.Background(), "user-1", "u@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "user-1", session.UserID)

	user, err := users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "u@example.com", user.Email)
	require.Equal(t, "member", user.Role)
	require.Equal(t, "active", user.Status)

	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
}

func TestLoginKeepsExistingUser(t *testing.T) {
	uc, users, _ := newUseCase()
	require.NoError(t, users.Upsert(context.Background(), &domain.User{
		ID:     "user-1",
		Email:  "original@example.com",
		Role:   "admin",
		Status: "active",
	}))

	_, _, err := uc.Login(context.Background(), "user-1", "changed@example.com", time.Hour)
	require.NoError(t, err)

	user, err := users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "original@example.com", user.Email)
	require.Equal(t, "admin", user.Role)
}

func TestLoginRejectsEmptyUserID(t *testing.T) {
	uc, _, _ := newUseCase()
	_, _, err := uc.Login(context.Background(), "", "", time.Hour)
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	uc, users, _ := newUseCase()
	require.NoError(t, users.Upsert(context.Background(), &domain.User{
		ID:     "user-1",
		Status: "blocked",
	}))

	_, _, err := uc.Login(context.Background(), "user-1", "", time.Hour)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestLoginTokenCarriesSessionClaims(t *testing.T) {
	uc, _, _ := newUseCase()

	session, token, err := uc.Login(context.Background(), "user-1", "", 2*time.Hour)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	require.Equal(t, "user-1", claims["user_id"])
	require.Equal(t, session.ID, claims["session_id"])
	require.Equal(t, "takify", claims["iss"])
	require.EqualValues(t, session.ExpiresAt.Unix(), claims["exp"])
}

func TestGetSessionDropsExpired(t *testing.T) {
	uc, _, sessions := newUseCase()
	require.NoError(t, sessions.Save(context.Background(), &domain.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := uc.GetSession(context.Background(), "sess-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// the expired record is gone, not just rejected
	_, err = sessions.Get(context.Background(), "sess-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRefreshSessionExtendsAndResigns(t *testing.T) {
	uc, _, sessions := newUseCase()

	session, first, err := uc.Login(context.Background(), "user-1", "", time.Minute)
	require.NoError(t, err)

	refreshed, second, err := uc.RefreshSession(context.Background(), session.ID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)
	require.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))

	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	require.True(t, stored.ExpiresAt.After(session.ExpiresAt))
}

func TestRevokeSession(t *testing.T) {
	uc, _, _ := newUseCase()

	session, _, err := uc.Login(context.Background(), "user-1", "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, uc.RevokeSession(context.Background(), session.ID))
	_, err = uc.GetSession(context.Background(), session.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
