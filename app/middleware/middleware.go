package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"inkpost/app/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TraceHeader carries the request trace id back to the client.
const TraceHeader = "X-Trace-Id"

type contextKey int

const (
	traceIDKey contextKey = iota
	userKey
)

// TraceID tags every request with a fresh uuid, exposed through the context and the response header.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), traceIDKey, id)))
	})
}

// TraceIDFromContext returns the request trace id, or "" outside a traced request.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

// Logger logs information about each request
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		event := log.Info()
		if rec.status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("traceId", TraceIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("bytes", rec.written).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// Recoverer recovers from panics and logs the error
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("panic", err).
					Str("traceId", TraceIDFromContext(r.Context())).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")
				WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON sets the Content-Type header to application/json for API routes.
// Handlers that stream other content override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError sends a JSON error body carrying the request trace id.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"traceId": TraceIDFromContext(r.Context()),
	})
}

// Authenticator checks account credentials.
type Authenticator interface {
	GetUserWithNameAndPassword(name, password string) (*models.User, error)
}

// Authenticate resolves HTTP Basic credentials into the request's user.
// Bad credentials leave the request anonymous; routes that need an account enforce it with RequireRole.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, password, ok := r.BasicAuth()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := auth.GetUserWithNameAndPassword(name, password)
			if err != nil {
				log.Info().Err(err).Str("username", name).Str("traceId", TraceIDFromContext(r.Context())).
					Msg("Authentication failed, continuing anonymously")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// ViewerID returns the id content visibility is decided for.
func ViewerID(ctx context.Context) int {
	if user := CurrentUser(ctx); user != nil {
		return user.ID
	}
	return 0
}

// RequireRole rejects anonymous requests, disabled accounts and accounts without role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			switch {
			case user == nil:
				w.Header().Set("WWW-Authenticate", `Basic realm="inkpost"`)
				WriteError(w, r, http.StatusUnauthorized, "You need to log in to do that.")
			case user.AccountDisabled:
				WriteError(w, r, http.StatusForbidden, "Your account has been disabled.")
			case !user.HasRole(role):
				log.Warn().Int("userId", user.ID).Str("role", role).Str("path", r.URL.Path).
					Msg("Rejected request missing role")
				WriteError(w, r, http.StatusForbidden, "You are not allowed to do that.")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
