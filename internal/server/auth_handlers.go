package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/consolehq/admin-front/internal/authflow"
	"github.com/consolehq/admin-front/internal/callback"
	"github.com/consolehq/admin-front/internal/cookie"
	"github.com/consolehq/admin-front/internal/ioutil"
	jsonwriter "github.com/consolehq/admin-front/internal/json"
	"github.com/consolehq/admin-front/internal/log"
)

// maxFragmentBody bounds the relayed fragment; real provider redirects carry a
// few KB of tokens at most.
const maxFragmentBody = 64 * 1024

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, loginTemplate, LoginPageData{
		Name:        s.cfg.Console.Name,
		DefaultFlow: string(s.cfg.IdP.DefaultFlow),
		Message:     r.URL.Query().Get("message"),
	})
}

func (s *Server) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	flow := authflow.Flow(r.URL.Query().Get("flow"))
	switch flow {
	case authflow.FlowCode, authflow.FlowImplicit:
	case "":
		flow = s.cfg.IdP.DefaultFlow
	default:
		jsonwriter.WriteBadRequest(w, "unknown flow")
		return
	}

	authURL, err := s.flow.AuthorizationURL(flow)
	if err != nil {
		log.LogError("Failed to build authorization URL: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to start login")
		return
	}

	log.LogInfoWithFields("auth", "Redirecting to identity provider", map[string]any{
		"flow": string(flow),
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	result := callback.Parse(r.URL)

	// A bare query can still mean implicit-flow tokens: those live in the
	// fragment, which the browser never sends. Serve the relay page and let
	// it POST the fragment back.
	if result.Kind == callback.KindMissing && r.URL.Fragment == "" {
		s.render(w, http.StatusOK, relayTemplate, RelayPageData{})
		return
	}

	if result.Kind == callback.KindAuthorizationCode {
		if _, err := s.flow.VerifyState(result.State); err != nil {
			log.LogWarnWithFields("auth", "Rejecting callback with invalid state", map[string]any{
				"error": err.Error(),
			})
			s.renderOutcome(w, r, callback.Outcome{
				Target:  callback.TargetLogin,
				Delay:   s.cfg.Console.FailureRedirectDelay.Std(),
				Message: "Invalid login state, please try again",
			})
			return
		}
	}

	creds := s.creds(r)
	outcome := s.reconciler.Reconcile(r.Context(), creds, s.api(creds), result)
	s.renderOutcome(w, r, outcome)
}

// handleCallbackFragment receives the implicit-flow fragment relayed by the
// callback page and answers with a navigation outcome as JSON.
func (s *Server) handleCallbackFragment(w http.ResponseWriter, r *http.Request) {
	body := ioutil.ReadLimited(r.Body, maxFragmentBody)
	result := callback.Parse(&url.URL{Fragment: body})

	if result.Kind == callback.KindImplicitTokens {
		if _, err := s.flow.VerifyState(result.State); err != nil {
			log.LogWarnWithFields("auth", "Rejecting fragment with invalid state", map[string]any{
				"error": err.Error(),
			})
			s.writeOutcome(w, callback.Outcome{
				Target:  callback.TargetLogin,
				Delay:   s.cfg.Console.FailureRedirectDelay.Std(),
				Message: "Invalid login state, please try again",
			})
			return
		}
	}

	creds := s.creds(r)
	outcome := s.reconciler.Reconcile(r.Context(), creds, s.api(creds), result)
	s.writeOutcome(w, outcome)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	creds := s.creds(r)

	// Best effort: the backend may record the logout, but local cleanup
	// happens regardless.
	if err := s.api(creds).Logout(r.Context()); err != nil {
		log.LogWarnWithFields("auth", "Backend logout failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := creds.ClearAll(r.Context()); err != nil {
		log.LogError("Failed to clear credentials on logout: %v", err)
	}
	s.guard.Invalidate(session)
	cookie.ClearSession(w)

	log.LogInfoWithFields("auth", "Session signed out", map[string]any{
		"session": session,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// renderOutcome turns a reconciliation outcome into either an immediate
// redirect or a failure page whose meta refresh fires after the declared delay.
func (s *Server) renderOutcome(w http.ResponseWriter, r *http.Request, outcome callback.Outcome) {
	if !outcome.Failed() {
		http.Redirect(w, r, outcome.Target, http.StatusFound)
		return
	}

	s.render(w, http.StatusOK, errorTemplate, ErrorPageData{
		Message:      outcome.Message,
		Target:       outcome.Target,
		DelaySeconds: delaySeconds(outcome.Delay),
	})
}

type outcomeResponse struct {
	Target       string `json:"target"`
	Message      string `json:"message,omitempty"`
	DelaySeconds int    `json:"delaySeconds,omitempty"`
}

func (s *Server) writeOutcome(w http.ResponseWriter, outcome callback.Outcome) {
	_ = jsonwriter.Write(w, outcomeResponse{
		Target:       outcome.Target,
		Message:      outcome.Message,
		DelaySeconds: delaySeconds(outcome.Delay),
	})
}

func delaySeconds(d time.Duration) int {
	return int(d / time.Second)
}
