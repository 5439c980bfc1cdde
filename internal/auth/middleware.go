package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// SessionKey is the context key for the restored session
const SessionKey contextKey = "session"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SessionFromContext returns the session RequireSession stored, or nil
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(SessionKey).(*Session); ok {
		return s
	}
	return nil
}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// TokenSource extracts the access token a request carries, or ""
type TokenSource func(r *http.Request) string

// BearerToken reads the Authorization header
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// FirstToken tries each source in order
func FirstToken(sources ...TokenSource) TokenSource {
	return func(r *http.Request) string {
		for _, src := range sources {
			if t := src(r); t != "" {
				return t
			}
		}
		return ""
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := ErrorResponse{
		Error: message,
		Code:  code,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sendTokenExpirationWarning adds a warning header when token expires soon
func sendTokenExpirationWarning(w http.ResponseWriter, expiresAt time.Time) {
	timeUntilExpiry := time.Until(expiresAt)
	if timeUntilExpiry <= time.Hour && timeUntilExpiry > 0 {
		w.Header().Set("X-Token-Expires-At", expiresAt.Format(time.RFC3339))
		w.Header().Set("X-Token-Expires-In", timeUntilExpiry.Round(time.Second).String())
	}
}

// validateTokenFormat performs basic token format validation
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token cannot be empty")
	}
	if len(tokenString) > 8192 { // 8KB limit
		return errors.New("token size exceeds maximum allowed")
	}
	// Basic JWT format validation (3 parts separated by dots)
	if strings.Count(tokenString, ".") != 2 {
		return errors.New("invalid JWT token format")
	}
	return nil
}

// JSONUnauthorized answers a missing or invalid session for API callers
func JSONUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	code := "MISSING_TOKEN"
	msg := "Authentication required"
	if err != nil && !errors.Is(err, errMissingToken) {
		code = "INVALID_TOKEN"
		msg = "Invalid or expired token"
		if strings.Contains(err.Error(), "expired") {
			code = "TOKEN_EXPIRED"
			msg = "Token has expired"
		}
	}
	sendErrorResponse(w, msg, code, http.StatusUnauthorized)
}

// RedirectToLogin answers a missing session for browser callers
func RedirectToLogin(loginPath string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, _ error) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	}
}

var errMissingToken = errors.New("no access token")

// RequireSession restores the session for every request and stores it in the
// context. Requests without a valid session go to onMissing.
func RequireSession(p Provider, tokens TokenSource, onMissing func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if onMissing == nil {
		onMissing = JSONUnauthorized
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokens(r)
			if token == "" {
				onMissing(w, r, errMissingToken)
				return
			}

			s, err := p.CurrentSession(r.Context(), token)
			if err != nil {
				onMissing(w, r, err)
				return
			}

			if !s.ExpiresAt.IsZero() {
				sendTokenExpirationWarning(w, s.ExpiresAt)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
