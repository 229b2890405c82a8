package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/takify/backend/domain"
)

// Headers populated by the JWT middleware for downstream handlers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
)

// SessionChecker resolves a session id to a live session. Revoked and expired
// sessions come back as errors.
type SessionChecker interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ViewModelReleaser detaches an owner's live task view when their session is
// no longer valid.
type ViewModelReleaser interface {
	Release(ownerID string)
}

// JWTAuth validates the bearer token, confirms the session it names is still
// live in the session store, and forwards the authenticated user and session
// ids to the wrapped handler. A signed token whose session has been revoked
// or has expired is rejected, and the owner's view-model is released so its
// feed subscription does not outlive the session.
func JWTAuth(secret string, sessions SessionChecker, views ViewModelReleaser, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			userID, _ := claims["user_id"].(string)
			sessionID, _ := claims["session_id"].(string)
			if userID == "" || sessionID == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			if sessions != nil {
				session, err := sessions.GetSession(ctx, sessionID)
				if err != nil || session.UserID != userID {
					logger.Info("rejected token for dead session",
						zap.String("user_id", userID),
						zap.String("session_id", sessionID))
					if views != nil {
						views.Release(userID)
					}
					ctx.SetStatusCode(fasthttp.StatusUnauthorized)
					return
				}
			}

			ctx.Request.Header.Set(HeaderUserID, userID)
			ctx.Request.Header.Set(HeaderSessionID, sessionID)
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
