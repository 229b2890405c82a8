package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/takify/backend/domain"
)

const testSecret = "middleware-secret"

type fakeSessions struct {
	session *domain.Session
	err     error
}

func (f *fakeSessions) GetSession(_ context.Context, _ string) (*domain.Session, error) {
	return f.session, f.err
}

type fakeViews struct {
	released []string
}

func (f *fakeViews) Release(ownerID string) {
	f.released = append(f.released, ownerID)
}

func signToken(t *testing.T, secret, userID, sessionID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"session_id": sessionID,
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runRequest(sessions SessionChecker, views ViewModelReleaser, token string) (*fasthttp.RequestCtx, bool) {
	nextCalled := false
	handler := JWTAuth(testSecret, sessions, views, nil)(func(ctx *fasthttp.RequestCtx) {
		nextCalled = true
	})

	ctx := &fasthttp.RequestCtx{}
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	handler(ctx)
	return ctx, nextCalled
}

func TestJWTAuthAcceptsLiveSession(t *testing.T) {
	sessions := &fakeSessions{session: &domain.Session{ID: "sess-1", UserID: "user-1"}}
	views := &fakeViews{}

	ctx, nextCalled := runRequest(sessions, views, signToken(t, testSecret, "user-1", "sess-1"))

	require.True(t, nextCalled)
	require.Equal(t, "user-1", string(ctx.Request.Header.Peek(HeaderUserID)))
	require.Equal(t, "sess-1", string(ctx.Request.Header.Peek(HeaderSessionID)))
	require.Empty(t, views.released)
}

func TestJWTAuthRejectsRevokedSession(t *testing.T) {
	// signature and exp are still valid; only the session store says no
	sessions := &fakeSessions{err: domain.ErrSessionNotFound}
	views := &fakeViews{}

	ctx, nextCalled := runRequest(sessions, views, signToken(t, testSecret, "user-1", "sess-1"))

	require.False(t, nextCalled)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	require.Equal(t, []string{"user-1"}, views.released)
}

func TestJWTAuthRejectsSessionUserMismatch(t *testing.T) {
	sessions := &fakeSessions{session: &domain.Session{ID: "sess-1", UserID: "someone-else"}}
	views := &fakeViews{}

	ctx, nextCalled := runRequest(sessions, views, signToken(t, testSecret, "user-1", "sess-1"))

	require.False(t, nextCalled)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	require.Equal(t, []string{"user-1"}, views.released)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	ctx, nextCalled := runRequest(&fakeSessions{}, &fakeViews{}, "")

	require.False(t, nextCalled)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestJWTAuthRejectsForeignSignature(t *testing.T) {
	ctx, nextCalled := runRequest(&fakeSessions{}, &fakeViews{}, signToken(t, "other-secret", "user-1", "sess-1"))

	require.False(t, nextCalled)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestJWTAuthRejectsTokenWithoutSessionClaim(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	ctx, nextCalled := runRequest(&fakeSessions{}, &fakeViews{}, signed)

	require.False(t, nextCalled)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}
