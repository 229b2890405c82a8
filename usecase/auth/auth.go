package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/takify/backend/domain"
	"github.com/takify/backend/repository"
)

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	secret   []byte
	issuer   string
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, secret, issuer string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		issuer:   issuer,
		logger:   logger,
	}
}

// Login ensures the user identity exists (first login creates it), opens a
// session and signs a bearer token carrying the user and session ids.
func (uc *UseCase) Login(ctx context.Context, userID, email string, ttl time.Duration) (*domain.Session, string, error) {
	if userID == "" {
		return nil, "", domain.ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	user, err := uc.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{
			ID:     userID,
			Email:  email,
			Role:   "member",
			Status: "active",
		}
		if err := uc.users.Upsert(ctx, user); err != nil {
			return nil, "", err
		}
		uc.logger.Info("user registered on first login", zap.String("user_id", userID))
	case err != nil:
		return nil, "", err
	}

	if !user.IsActive() {
		return nil, "", domain.NewError(domain.ErrCodeForbidden, "user is not active")
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, "", err
	}

	token, err := uc.sign(session)
	if err != nil {
		_ = uc.sessions.Delete(ctx, session.ID)
		return nil, "", err
	}
	return session, token, nil
}

// GetSession loads a session and drops it if already expired.
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RefreshSession extends the session TTL and re-signs the token.
func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, "", err
	}
	session.ExpiresAt = time.Now().Add(ttl)

	token, err := uc.sign(session)
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// RevokeSession ends the session. Callers are expected to detach the owner's
// view-model alongside.
func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// GetUser returns the identity behind a user id.
func (uc *UseCase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) sign(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    session.UserID,
		"session_id": session.ID,
		"iss":        uc.issuer,
		"iat":        session.CreatedAt.Unix(),
		"exp":        session.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(uc.secret)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "failed to sign token", err)
	}
	return signed, nil
}
