package guard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consolehq/admin-front/internal/apiclient"
	"github.com/consolehq/admin-front/internal/credstore"
)

type fakeAPI struct {
	calls    atomic.Int64
	identity *apiclient.Identity
	err      error
}

func (f *fakeAPI) Me(_ context.Context) (*apiclient.Identity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func signedToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	encode := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := encode(map[string]any{"alg": "RS256", "typ": "JWT"})
	return header + "." + encode(claims) + ".c2lnbmF0dXJl"
}

func freshToken(t *testing.T) string {
	t.Helper()
	return signedToken(t, map[string]any{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func guardCreds() credstore.Credentials {
	return credstore.ForSession(credstore.NewMemoryStore(), "sess-1")
}

func TestCheck_NoCredential(t *testing.T) {
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1"}}
	g := New()

	_, err := g.Check(context.Background(), "sess-1", guardCreds(), api)

	assert.ErrorIs(t, err, ErrNoCredential)
	// Nothing stored means no backend round trip either.
	assert.EqualValues(t, 0, api.calls.Load())
}

func TestCheck_SuccessCachesIdentity(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, freshToken(t)))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1", Email: "user@example.com"}}
	g := New()

	first, err := g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)
	assert.Equal(t, "user-1", first.ID)

	second, err := g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestCheck_AuthFailureClearsCredentials(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, freshToken(t)))
	require.NoError(t, creds.Set(ctx, credstore.KindRefreshToken, "refresh-1"))
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.FailureAuth, Status: 403, Message: "forbidden"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)

	assert.True(t, apiclient.IsAuthFailure(err))
	for _, kind := range credstore.Kinds {
		_, getErr := creds.Get(ctx, kind)
		assert.ErrorIs(t, getErr, credstore.ErrNotFound)
	}
}

func TestCheck_TransientFailureKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	token := freshToken(t)
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, token))
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.FailureTransient, Status: 503, Message: "unavailable"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)

	// A backend outage must not log the user out.
	assert.True(t, apiclient.IsTransientFailure(err))
	stored, getErr := creds.Get(ctx, credstore.KindIDToken)
	require.NoError(t, getErr)
	assert.Equal(t, token, stored)

	// Identity was not cached; recovery retries the backend.
	api.err = nil
	api.identity = &apiclient.Identity{ID: "user-1"}
	identity, err := g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
}

func TestCheck_UndecodableCredentialCleared(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, "not-a-jwt"))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)

	assert.ErrorIs(t, err, ErrNoCredential)
	assert.EqualValues(t, 0, api.calls.Load())
	_, getErr := creds.Get(ctx, credstore.KindIDToken)
	assert.ErrorIs(t, getErr, credstore.ErrNotFound)
}

func TestCheck_ExpiredCredentialCleared(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	expired := signedToken(t, map[string]any{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, expired))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)

	assert.ErrorIs(t, err, ErrNoCredential)
	assert.EqualValues(t, 0, api.calls.Load())
	_, getErr := creds.Get(ctx, credstore.KindIDToken)
	assert.ErrorIs(t, getErr, credstore.ErrNotFound)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, freshToken(t)))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)

	g.Invalidate("sess-1")

	_, err = g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	creds := guardCreds()
	require.NoError(t, creds.Set(ctx, credstore.KindIDToken, freshToken(t)))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-1", DisplayName: "Before"}}
	g := New()

	_, err := g.Check(ctx, "sess-1", creds, api)
	require.NoError(t, err)

	api.identity = &apiclient.Identity{ID: "user-1", DisplayName: "After"}
	identity, err := g.Refresh(ctx, "sess-1", creds, api)
	require.NoError(t, err)
	assert.Equal(t, "After", identity.DisplayName)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestCheck_SessionsIsolated(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	credsA := credstore.ForSession(store, "sess-a")
	require.NoError(t, credsA.Set(ctx, credstore.KindIDToken, freshToken(t)))
	api := &fakeAPI{identity: &apiclient.Identity{ID: "user-a"}}
	g := New()

	_, err := g.Check(ctx, "sess-a", credsA, api)
	require.NoError(t, err)

	// A different session with no credentials gets no cached identity leak.
	credsB := credstore.ForSession(store, "sess-b")
	_, err = g.Check(ctx, "sess-b", credsB, api)
	assert.ErrorIs(t, err, ErrNoCredential)
}
