package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/consolehq/admin-front/internal/cookie"
	"github.com/consolehq/admin-front/internal/crypto"
	jsonwriter "github.com/consolehq/admin-front/internal/json"
	"github.com/consolehq/admin-front/internal/log"
)

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and bytes written
// while properly delegating all optional interfaces through Unwrap
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) Status() int {
	return r.status
}

func (r *responseWriterDelegator) BytesWritten() int {
	return r.written
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for interface detection
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var _ http.ResponseWriter = (*responseWriterDelegator)(nil)

// NewLoggerMiddleware adds request/response logging with a per-request id
func NewLoggerMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			fields := map[string]any{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       wrapped.BytesWritten(),
				"remote_addr": r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = redactQuery(r.URL.Query())
			}

			log.LogInfoWithFields(prefix, "request", fields)
		})
	}
}

// sensitiveParams are query parameters that carry credentials or one-time
// secrets (authorization codes, signed state, tokens leaked into a query).
// Their values must never reach the logs.
var sensitiveParams = []string{"code", "state", "id_token", "access_token", "refresh_token"}

func redactQuery(q url.Values) string {
	for _, param := range sensitiveParams {
		if _, ok := q[param]; ok {
			q.Set(param, "redacted")
		}
	}
	return q.Encode()
}

// NewRecoverMiddleware recovers from panics
func NewRecoverMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Logf("<%s> Recovered from panic: %v", prefix, err)
					jsonwriter.WriteInternalServerError(w, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type sessionContextKey struct{}

// SessionFromContext returns the console session id set by the session middleware
func SessionFromContext(ctx context.Context) string {
	session, _ := ctx.Value(sessionContextKey{}).(string)
	return session
}

func withSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// NewSessionMiddleware ensures every request carries a console session cookie.
// The cookie holds only an opaque random id; credentials live server-side,
// keyed by that id.
func NewSessionMiddleware(maxAge time.Duration) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := cookie.GetSession(r)
			if err != nil || session == "" {
				session, err = crypto.GenerateSecureToken()
				if err != nil {
					log.LogError("Failed to generate session id: %v", err)
					jsonwriter.WriteInternalServerError(w, "Internal Server Error")
					return
				}
				cookie.SetSession(w, session, maxAge)
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}
