package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/consolehq/admin-front/internal/apiclient"
	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/log"
	"github.com/consolehq/admin-front/internal/token"
)

// ErrNoCredential means no usable credential exists for the session: nothing
// stored, or only garbage/expired leftovers. Callers send the user to login.
var ErrNoCredential = errors.New("no usable credential")

// API is the lightweight "who am I" call the guard relies on.
type API interface {
	Me(ctx context.Context) (*apiclient.Identity, error)
}

// Guard decides, on protected-page entry, whether a session holds a
// credential the backend still honors. The resolved identity is cached per
// session until Invalidate or Refresh, so in-page navigation does not
// re-fetch it.
type Guard struct {
	now func() time.Time

	mu         sync.RWMutex
	identities map[string]*apiclient.Identity
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{
		now:        time.Now,
		identities: make(map[string]*apiclient.Identity),
	}
}

// Check resolves the session's identity.
//
// No stored credential, an undecodable one, or a locally-expired one clears
// the store and returns ErrNoCredential. A 401/403 from the backend clears
// the store and returns the auth failure. Any other failure leaves the
// credentials alone so a backend outage never logs the user out; the caller
// shows a retryable error instead.
func (g *Guard) Check(ctx context.Context, session string, creds credstore.Credentials, api API) (*apiclient.Identity, error) {
	if identity := g.cached(session); identity != nil {
		return identity, nil
	}

	bearer, err := creds.Bearer(ctx)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}

	claims, err := token.Decode(bearer)
	if err != nil {
		// A prior session's garbage is not a crash, just a missing login.
		log.LogWarnWithFields("guard", "Discarding undecodable stored credential", map[string]any{
			"error": err.Error(),
		})
		_ = creds.ClearAll(ctx)
		return nil, ErrNoCredential
	}
	if claims.Expired(g.now()) {
		log.LogDebugWithFields("guard", "Stored credential expired locally", map[string]any{
			"subject": claims.Subject,
		})
		_ = creds.ClearAll(ctx)
		return nil, ErrNoCredential
	}

	identity, err := api.Me(ctx)
	if err != nil {
		if apiclient.IsAuthFailure(err) {
			log.LogInfoWithFields("guard", "Backend no longer honors credential", map[string]any{
				"session": session,
			})
			_ = creds.ClearAll(ctx)
			g.Invalidate(session)
			return nil, err
		}
		// Transient or validation failure: keep the credentials.
		return nil, err
	}

	g.mu.Lock()
	g.identities[session] = identity
	g.mu.Unlock()
	return identity, nil
}

// Refresh drops the cached identity and re-runs Check.
func (g *Guard) Refresh(ctx context.Context, session string, creds credstore.Credentials, api API) (*apiclient.Identity, error) {
	g.Invalidate(session)
	return g.Check(ctx, session, creds, api)
}

// Invalidate forgets the cached identity for a session (logout, auth failure).
func (g *Guard) Invalidate(session string) {
	g.mu.Lock()
	delete(g.identities, session)
	g.mu.Unlock()
}

func (g *Guard) cached(session string) *apiclient.Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identities[session]
}
