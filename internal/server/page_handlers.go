package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/consolehq/admin-front/internal/apiclient"
	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/guard"
	"github.com/consolehq/admin-front/internal/log"
	"github.com/consolehq/admin-front/internal/token"
)

// adminRole gates the admin pages. The backend enforces authorization on its
// side too; the check here only avoids burning a doomed request.
const adminRole = "admin"

type pageContext struct {
	identity *apiclient.Identity
	creds    credstore.Credentials
	api      *apiclient.Client
}

type pageHandler func(w http.ResponseWriter, r *http.Request, page pageContext)

// withIdentity runs the session guard before a protected page. No usable
// credential means a login redirect; a backend hiccup keeps the session and
// shows a retryable error instead.
func (s *Server) withIdentity(next pageHandler) http.HandlerFunc {
	return s.guarded(next, false)
}

// withFragmentRelay is withIdentity for routes the implicit flow historically
// redirected to directly. An unauthenticated arrival may carry tokens in the
// URL fragment, which only the browser can see, so instead of redirecting the
// server serves the relay page; fragment-less visitors are sent to login by it.
func (s *Server) withFragmentRelay(next pageHandler) http.HandlerFunc {
	return s.guarded(next, true)
}

func (s *Server) guarded(next pageHandler, relayFragments bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		creds := s.creds(r)
		api := s.api(creds)

		identity, err := s.guard.Check(r.Context(), session, creds, api)
		if err != nil {
			if errors.Is(err, guard.ErrNoCredential) && relayFragments {
				s.render(w, http.StatusOK, relayTemplate, RelayPageData{EmptyRedirect: "/login"})
				return
			}
			if errors.Is(err, guard.ErrNoCredential) || apiclient.IsAuthFailure(err) {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			s.renderBackendError(w, err, r.URL.Path)
			return
		}

		next(w, r, pageContext{identity: identity, creds: creds, api: api})
	}
}

// renderBackendError shows a failure that did not cost the user their session.
func (s *Server) renderBackendError(w http.ResponseWriter, err error, retryTarget string) {
	status := http.StatusInternalServerError
	message := "Something went wrong, please try again"
	if apiclient.IsTransientFailure(err) {
		status = http.StatusBadGateway
		message = "The backend is unreachable, please try again"
	}

	log.LogErrorWithFields("server", "Backend request failed", map[string]any{
		"error": err.Error(),
	})
	s.render(w, status, errorTemplate, ErrorPageData{
		Message:     message,
		Retryable:   true,
		RetryTarget: retryTarget,
	})
}

func isAdmin(identity *apiclient.Identity) bool {
	for _, role := range identity.Roles {
		if role == adminRole {
			return true
		}
	}
	return false
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, page pageContext) {
	s.render(w, http.StatusOK, dashboardTemplate, DashboardPageData{
		Name:     s.cfg.Console.Name,
		Identity: page.identity,
		IsAdmin:  isAdmin(page.identity),
	})
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request, page pageContext) {
	s.render(w, http.StatusOK, profileTemplate, ProfilePageData{
		Name:     s.cfg.Console.Name,
		Identity: page.identity,
	})
}

func (s *Server) handleProfilePost(w http.ResponseWriter, r *http.Request, page pageContext) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, profileTemplate, ProfilePageData{
			Name:        s.cfg.Console.Name,
			Identity:    page.identity,
			Message:     "Invalid form submission",
			MessageType: "error",
		})
		return
	}

	update := apiclient.ProfileUpdate{
		DisplayName: r.PostFormValue("displayName"),
		Locale:      r.PostFormValue("locale"),
	}

	updated, err := page.api.UpdateProfile(r.Context(), update)
	if err != nil {
		if apiclient.IsAuthFailure(err) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		s.render(w, http.StatusOK, profileTemplate, ProfilePageData{
			Name:        s.cfg.Console.Name,
			Identity:    page.identity,
			Message:     "Failed to save profile, please try again",
			MessageType: "error",
		})
		return
	}

	// The cached identity is stale now; the next page load re-fetches it.
	s.guard.Invalidate(SessionFromContext(r.Context()))

	s.render(w, http.StatusOK, profileTemplate, ProfilePageData{
		Name:        s.cfg.Console.Name,
		Identity:    updated,
		Message:     "Profile saved",
		MessageType: "success",
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, page pageContext) {
	if !isAdmin(page.identity) {
		s.renderForbidden(w)
		return
	}

	users, err := page.api.ListUsers(r.Context())
	if err != nil {
		if apiclient.IsAuthFailure(err) {
			s.renderForbidden(w)
			return
		}
		s.renderBackendError(w, err, r.URL.Path)
		return
	}

	s.render(w, http.StatusOK, usersTemplate, UsersPageData{
		Name:  s.cfg.Console.Name,
		Users: users,
	})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request, page pageContext) {
	if !isAdmin(page.identity) {
		s.renderForbidden(w)
		return
	}

	entries, err := page.api.AuditLog(r.Context())
	if err != nil {
		if apiclient.IsAuthFailure(err) {
			s.renderForbidden(w)
			return
		}
		s.renderBackendError(w, err, r.URL.Path)
		return
	}

	s.render(w, http.StatusOK, auditTemplate, AuditPageData{
		Name:    s.cfg.Console.Name,
		Entries: entries,
	})
}

// renderForbidden covers both the local role check and a backend 403. The
// identity itself is still valid, so no credentials are cleared.
func (s *Server) renderForbidden(w http.ResponseWriter) {
	s.render(w, http.StatusForbidden, errorTemplate, ErrorPageData{
		Message:     "You do not have access to this page",
		Retryable:   true,
		RetryTarget: "/dashboard",
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request, page pageContext) {
	now := time.Now()

	var entries []TokenDebugEntry
	for _, kind := range credstore.Kinds {
		entry := TokenDebugEntry{Kind: string(kind)}

		raw, err := page.creds.Get(r.Context(), kind)
		if err == nil {
			entry.Present = true
			entry.Truncated = truncateToken(raw)
			claims, decodeErr := token.Decode(raw)
			if decodeErr != nil {
				entry.DecodeErr = decodeErr.Error()
			} else {
				entry.Subject = claims.Subject
				entry.Email = claims.Email
				entry.Roles = claims.Roles
				entry.ExpiresAt = claims.ExpiresAt
				entry.Expired = claims.Expired(now)
			}
		}
		entries = append(entries, entry)
	}

	data := DebugPageData{
		Name:   s.cfg.Console.Name,
		Tokens: entries,
	}

	probe, err := page.api.TokenProbe(r.Context())
	if err != nil {
		data.ProbeError = err.Error()
	} else if body, marshalErr := json.MarshalIndent(probe, "", "  "); marshalErr == nil {
		data.ProbeBody = string(body)
	}

	s.render(w, http.StatusOK, debugTemplate, data)
}

// truncateToken keeps enough of a token to recognize it without exposing the
// whole credential on screen.
func truncateToken(raw string) string {
	const keep = 24
	if len(raw) <= keep {
		return raw
	}
	return raw[:keep] + "..."
}
