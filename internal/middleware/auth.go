package middleware

import (
	"context"
	"net/http"
	"strings"

	"trackvote/internal/repository"
	"trackvote/internal/service/auth"
	"trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// AdminContextKey is the key for admin claims in context
	AdminContextKey ContextKey = "admin"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// TokenValidator validates admin session tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.AdminClaims, error)
}

// AdminAuth rejects requests without a valid admin bearer token
func AdminAuth(validator TokenValidator, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeErrorResponse(w, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				appErr, ok := errors.As(err)
				if !ok {
					appErr = errors.NewAuthenticationError("Invalid or expired token")
				}
				writeErrorResponse(w, appErr, logger)
				return
			}

			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID adds a unique request ID to each request. An incoming
// X-Request-ID is kept when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// QueryCounter attaches a fresh storage query counter to every request
func QueryCounter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := repository.WithQueryCounter(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithField("reason", appErr.Type).Debug("Request rejected")
	errors.WriteJSON(w, appErr)
}
