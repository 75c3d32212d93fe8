package cookie

import (
	"net/http"
	"time"

	"github.com/consolehq/admin-front/internal/envutil"
	"github.com/consolehq/admin-front/internal/log"
)

// SessionCookie names the console session cookie. Its value is an opaque
// session ID; tokens themselves never leave the server.
const SessionCookie = "admin_front_session"

// SetSession sets the console session cookie with appropriate security settings
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": secure,
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearSession removes the console session cookie
func ClearSession(w http.ResponseWriter) {
	Clear(w, SessionCookie)
	log.LogDebugWithFields("cookie", "Session cookie cleared", nil)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetSession retrieves the console session cookie value
func GetSession(r *http.Request) (string, error) {
	return Get(r, SessionCookie)
}
