package server

import (
	"html/template"
	"net/http"

	"github.com/consolehq/admin-front/internal/apiclient"
	"github.com/consolehq/admin-front/internal/authflow"
	"github.com/consolehq/admin-front/internal/callback"
	"github.com/consolehq/admin-front/internal/config"
	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/guard"
	"github.com/consolehq/admin-front/internal/log"
)

// Server wires the console's HTTP surface: the login redirect, the callback
// reconciliation, and the authenticated pages behind the session guard.
type Server struct {
	cfg        config.Config
	store      credstore.Store
	clients    *apiclient.Factory
	flow       *authflow.Handler
	reconciler *callback.Reconciler
	guard      *guard.Guard
}

// New assembles a console server on top of a credential store.
func New(cfg config.Config, store credstore.Store) *Server {
	flow := authflow.New(authflow.Config{
		AuthorizationEndpoint: cfg.IdP.AuthorizationEndpoint,
		ClientID:              cfg.IdP.ClientID,
		RedirectURI:           cfg.IdP.RedirectURI,
		Scopes:                cfg.IdP.Scopes,
	}, []byte(cfg.Console.StateSigningKey))

	return &Server{
		cfg:   cfg,
		store: store,
		clients: apiclient.NewFactory(apiclient.ClientOpts{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.Timeout.Std(),
		}),
		flow:       flow,
		reconciler: callback.NewReconciler(cfg.Console.FailureRedirectDelay.Std()),
		guard:      guard.New(),
	}
}

// Handler returns the fully routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", NewHealthHandler())

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /login/start", s.handleLoginStart)
	mux.HandleFunc("GET /callback", s.handleCallback)
	mux.HandleFunc("POST /callback/fragment", s.handleCallbackFragment)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /dashboard", s.withFragmentRelay(s.handleDashboard))
	mux.HandleFunc("GET /profile", s.withIdentity(s.handleProfileGet))
	mux.HandleFunc("POST /profile", s.withIdentity(s.handleProfilePost))
	mux.HandleFunc("GET /admin/users", s.withIdentity(s.handleAdminUsers))
	mux.HandleFunc("GET /admin/audit-log", s.withIdentity(s.handleAuditLog))
	mux.HandleFunc("GET /debug", s.withIdentity(s.handleDebug))

	return ChainMiddleware(mux,
		NewSessionMiddleware(s.cfg.Console.SessionMaxAge.Std()),
		NewRecoverMiddleware("server"),
		NewLoggerMiddleware("server"),
	)
}

// creds returns the credential view bound to the request's console session.
func (s *Server) creds(r *http.Request) credstore.Credentials {
	return credstore.ForSession(s.store, SessionFromContext(r.Context()))
}

// api binds the shared backend client to the session's credentials.
func (s *Server) api(creds credstore.Credentials) *apiclient.Client {
	return s.clients.Session(creds)
}

func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.LogError("Failed to render %s template: %v", tmpl.Name(), err)
	}
}
