package authflow

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/consolehq/admin-front/internal/crypto"
)

// Flow selects which OAuth2 response type the login redirect requests.
type Flow string

const (
	// FlowCode is the authorization-code flow: the provider redirects back
	// with ?code=..., exchanged at the backend.
	FlowCode Flow = "code"

	// FlowImplicit is the legacy implicit flow: the provider redirects back
	// with tokens in the URL fragment.
	FlowImplicit Flow = "token"
)

// stateTTL bounds how long a login redirect may stay outstanding.
const stateTTL = 10 * time.Minute

// Config describes the identity provider's authorization endpoint. Constructed
// fresh per login attempt, never persisted.
type Config struct {
	AuthorizationEndpoint string
	ClientID              string
	RedirectURI           string
	Scopes                []string
}

// State is the signed payload carried through the provider round-trip. The
// nonce ties the callback to a redirect this process issued; the flow records
// which response type was requested.
type State struct {
	Nonce string `json:"nonce"`
	Flow  Flow   `json:"flow"`
}

// Handler builds authorization URLs for the redirect-away step. The actual
// navigation is a full-page redirect issued by the HTTP layer; anything needed
// after return travels in the signed state.
type Handler struct {
	cfg    Config
	signer crypto.TokenSigner
}

// New creates a redirect handler. signingKey protects the state parameter.
func New(cfg Config, signingKey []byte) *Handler {
	return &Handler{
		cfg:    cfg,
		signer: crypto.NewTokenSigner(signingKey, stateTTL),
	}
}

// AuthorizationURL deterministically assembles the provider's authorization
// URL with client_id, scope, redirect_uri, response_type, and a signed state.
func (h *Handler) AuthorizationURL(flow Flow) (string, error) {
	nonce, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	state, err := h.signer.Sign(State{Nonce: nonce, Flow: flow})
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	oauthCfg := oauth2.Config{
		ClientID:    h.cfg.ClientID,
		RedirectURL: h.cfg.RedirectURI,
		Scopes:      h.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL: h.cfg.AuthorizationEndpoint,
		},
	}

	if flow == FlowImplicit {
		return oauthCfg.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", string(FlowImplicit))), nil
	}
	return oauthCfg.AuthCodeURL(state), nil
}

// VerifyState validates a state parameter returned by the provider.
func (h *Handler) VerifyState(raw string) (*State, error) {
	var state State
	if err := h.signer.Verify(raw, &state); err != nil {
		return nil, fmt.Errorf("invalid state parameter: %w", err)
	}
	return &state, nil
}
