package callback

import "net/url"

// ResultKind discriminates the possible shapes of a provider redirect.
type ResultKind string

const (
	// KindProviderError: the provider rejected the request (?error=...).
	KindProviderError ResultKind = "provider_error"

	// KindAuthorizationCode: the code flow returned ?code=...
	KindAuthorizationCode ResultKind = "authorization_code"

	// KindImplicitTokens: the implicit flow returned tokens in the fragment.
	KindImplicitTokens ResultKind = "implicit_tokens"

	// KindMissing: the URL carries neither a code, tokens, nor an error.
	KindMissing ResultKind = "missing"
)

// Result is the normalized classification of a redirect-back URL. Produced
// once per arrival; a pure function of the location, so re-parsing the same
// URL always yields the same Result.
type Result struct {
	Kind ResultKind

	// Code is set for KindAuthorizationCode.
	Code string

	// IDToken and AccessToken are set for KindImplicitTokens. The ID token
	// may arrive alone.
	IDToken     string
	AccessToken string

	// ErrorCode is set for KindProviderError.
	ErrorCode string

	// State is the opaque state parameter, when the provider echoed one.
	State string
}

// Parse classifies the current location. Precedence: a provider error beats
// everything, then an authorization code in the query, then tokens in the
// fragment.
func Parse(u *url.URL) Result {
	query := u.Query()
	state := query.Get("state")

	if errCode := query.Get("error"); errCode != "" {
		return Result{Kind: KindProviderError, ErrorCode: errCode, State: state}
	}

	if code := query.Get("code"); code != "" {
		return Result{Kind: KindAuthorizationCode, Code: code, State: state}
	}

	// Implicit-flow tokens arrive in the fragment, never the query.
	if fragment, err := url.ParseQuery(u.Fragment); err == nil {
		idToken := fragment.Get("id_token")
		accessToken := fragment.Get("access_token")
		if idToken != "" || accessToken != "" {
			if state == "" {
				state = fragment.Get("state")
			}
			return Result{
				Kind:        KindImplicitTokens,
				IDToken:     idToken,
				AccessToken: accessToken,
				State:       state,
			}
		}
	}

	return Result{Kind: KindMissing, State: state}
}
