package middleware

import (
	"context"
	"net/http"
)

type ctxKey struct{}

type holderKey struct{}

// userHolder переживает r.WithContext во внутренних middleware.
type userHolder struct {
	id  int64
	set bool
}

// TokenValidator проверяет токен запроса и возвращает id пользователя.
type TokenValidator interface {
	ValidateUserID(r *http.Request) (int64, bool)
}

// AuthMiddleware пропускает только запросы с подписанным токеном, иначе 401.
func AuthMiddleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := v.ValidateUserID(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID кладёт id пользователя в контекст и сообщает его LoggingMiddleware.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if h, ok := ctx.Value(holderKey{}).(*userHolder); ok {
		h.id, h.set = userID, true
	}
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext достаёт id пользователя, положенный AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ctxKey{}).(int64)
	return userID, ok
}
