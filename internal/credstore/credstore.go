package credstore

import (
	"context"
	"errors"
)

// Kind identifies one of the three independent credential slots.
// Absence of a slot means "not issued", not "empty".
type Kind string

const (
	KindIDToken      Kind = "id_token"
	KindAccessToken  Kind = "access_token"
	KindRefreshToken Kind = "refresh_token"
)

// Kinds lists every credential slot, in bearer-resolution precedence order.
var Kinds = []Kind{KindIDToken, KindAccessToken, KindRefreshToken}

// ErrNotFound is returned when a credential slot has no value.
var ErrNotFound = errors.New("credential not found")

// Store persists credential sets keyed by console session. The store enforces
// no expiry of its own: a present-but-expired token is the request client's
// and session guard's problem, not the store's.
//
// Only the callback reconciler and the logout action write; everything else
// reads.
type Store interface {
	Set(ctx context.Context, session string, kind Kind, value string) error
	Get(ctx context.Context, session string, kind Kind) (string, error)
	Clear(ctx context.Context, session string, kind Kind) error
	ClearAll(ctx context.Context, session string) error
	Close() error
}

// Credentials is a Store view bound to one console session. Components that
// only ever touch a single credential set take this instead of the raw Store.
type Credentials struct {
	store   Store
	session string
}

// ForSession binds a store to a session ID.
func ForSession(store Store, session string) Credentials {
	return Credentials{store: store, session: session}
}

// Session returns the console session ID this view is bound to.
func (c Credentials) Session() string {
	return c.session
}

func (c Credentials) Set(ctx context.Context, kind Kind, value string) error {
	return c.store.Set(ctx, c.session, kind, value)
}

func (c Credentials) Get(ctx context.Context, kind Kind) (string, error) {
	return c.store.Get(ctx, c.session, kind)
}

func (c Credentials) Clear(ctx context.Context, kind Kind) error {
	return c.store.Clear(ctx, c.session, kind)
}

func (c Credentials) ClearAll(ctx context.Context) error {
	return c.store.ClearAll(ctx, c.session)
}

// Bearer resolves the credential to attach to an outgoing request:
// ID token first, then access token. ErrNotFound when neither is present.
func (c Credentials) Bearer(ctx context.Context) (string, error) {
	for _, kind := range []Kind{KindIDToken, KindAccessToken} {
		value, err := c.Get(ctx, kind)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}
