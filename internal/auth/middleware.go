package auth

import (
	"Taglink-Backend/internal/domain"
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type contextKey string

const accountKey contextKey = "account"

// Middleware authenticates API requests with bearer tokens.
type Middleware struct {
	jwtService *JWTService
	log        *zap.Logger
}

func NewMiddleware(jwtService *JWTService, log *zap.Logger) *Middleware {
	return &Middleware{
		jwtService: jwtService,
		log:        log,
	}
}

// RequireAuth rejects requests without a valid token and stores the caller's account in
// the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.log.Debug("missing authorization header")
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		tokenString := ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			m.log.Debug("invalid authorization header format")
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("invalid token", zap.Error(err))
			if errors.Is(err, ErrExpiredToken) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
			} else {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
			}
			return
		}

		acc := claims.Account()
		m.log.Debug("authenticated account",
			zap.String("account_id", acc.ID),
			zap.String("plan", string(acc.Plan)))

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
	})
}

// WithAccount returns a context carrying acc.
func WithAccount(ctx context.Context, acc domain.Account) context.Context {
	return context.WithValue(ctx, accountKey, acc)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (domain.Account, bool) {
	acc, ok := ctx.Value(accountKey).(domain.Account)
	return acc, ok
}
