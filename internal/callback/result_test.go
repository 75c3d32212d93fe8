package callback

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Result
	}{
		{
			name: "authorization code",
			url:  "https://console.example.com/callback?code=ABC123&state=xyz",
			want: Result{Kind: KindAuthorizationCode, Code: "ABC123", State: "xyz"},
		},
		{
			name: "provider error",
			url:  "https://console.example.com/callback?error=access_denied",
			want: Result{Kind: KindProviderError, ErrorCode: "access_denied"},
		},
		{
			name: "provider error beats code",
			url:  "https://console.example.com/callback?error=access_denied&code=ABC123",
			want: Result{Kind: KindProviderError, ErrorCode: "access_denied"},
		},
		{
			name: "implicit tokens in fragment",
			url:  "https://console.example.com/dashboard#id_token=XYZ&access_token=ABC",
			want: Result{Kind: KindImplicitTokens, IDToken: "XYZ", AccessToken: "ABC"},
		},
		{
			name: "implicit id token alone",
			url:  "https://console.example.com/dashboard#id_token=XYZ",
			want: Result{Kind: KindImplicitTokens, IDToken: "XYZ"},
		},
		{
			name: "code in query beats fragment tokens",
			url:  "https://console.example.com/callback?code=ABC123#id_token=XYZ",
			want: Result{Kind: KindAuthorizationCode, Code: "ABC123"},
		},
		{
			name: "state carried in fragment",
			url:  "https://console.example.com/dashboard#id_token=XYZ&state=frag",
			want: Result{Kind: KindImplicitTokens, IDToken: "XYZ", State: "frag"},
		},
		{
			name: "bare URL is missing",
			url:  "https://console.example.com/callback",
			want: Result{Kind: KindMissing},
		},
		{
			name: "fragment without tokens is missing",
			url:  "https://console.example.com/callback#section-2",
			want: Result{Kind: KindMissing},
		},
		{
			name: "empty code is missing",
			url:  "https://console.example.com/callback?code=",
			want: Result{Kind: KindMissing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(mustParseURL(t, tt.url))
			assert.Equal(t, tt.want, got)
		})
	}
}

// Parsing is a pure function of the location: the same URL classifies
// identically every time.
func TestParse_Idempotent(t *testing.T) {
	u := mustParseURL(t, "https://console.example.com/callback?code=ABC123&state=xyz")

	first := Parse(u)
	second := Parse(u)
	assert.Equal(t, first, second)
}
