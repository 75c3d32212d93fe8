package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consolehq/admin-front/internal/cookie"
)

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	var seen string
	handler := NewSessionMiddleware(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.NotEmpty(t, seen)
	var issued string
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.SessionCookie {
			issued = c.Value
			assert.True(t, c.HttpOnly)
		}
	}
	assert.Equal(t, seen, issued)
}

func TestSessionMiddleware_ReusesExistingCookie(t *testing.T) {
	var seen string
	handler := NewSessionMiddleware(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: cookie.SessionCookie, Value: "existing-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "existing-session", seen)
	// No replacement cookie issued.
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, cookie.SessionCookie, c.Name)
	}
}

func TestSessionMiddleware_DistinctSessions(t *testing.T) {
	sessions := map[string]bool{}
	handler := NewSessionMiddleware(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessions[SessionFromContext(r.Context())] = true
	}))

	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}
	assert.Len(t, sessions, 3)
}

func TestRedactQuery_MasksCredentialParams(t *testing.T) {
	q := url.Values{
		"code":         {"SECRETCODE"},
		"state":        {"SIGNEDSTATE"},
		"access_token": {"SECRETACCESS"},
		"flow":         {"token"},
	}

	redacted := redactQuery(q)

	assert.NotContains(t, redacted, "SECRETCODE")
	assert.NotContains(t, redacted, "SIGNEDSTATE")
	assert.NotContains(t, redacted, "SECRETACCESS")
	assert.Contains(t, redacted, "code=redacted")
	assert.Contains(t, redacted, "state=redacted")
	// Harmless parameters survive untouched.
	assert.Contains(t, redacted, "flow=token")
}

func TestRedactQuery_PassesThroughPlainQueries(t *testing.T) {
	assert.Equal(t, "page=2", redactQuery(url.Values{"page": {"2"}}))
	assert.Equal(t, "", redactQuery(url.Values{}))
}

func TestRecoverMiddleware(t *testing.T) {
	handler := NewRecoverMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainMiddleware_Order(t *testing.T) {
	var order []string
	tag := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}),
		tag("inner"),
		tag("outer"),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
