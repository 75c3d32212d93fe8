package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/consolehq/admin-front/internal/apiclient"
	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/log"
)

// Route targets for the two terminal states.
const (
	TargetDashboard = "/dashboard"
	TargetLogin     = "/login"
)

// processedTTL is how long a spent authorization code's outcome is remembered.
// Long enough to cover any re-render of the callback page, short enough that
// the memo table cannot grow unbounded.
const processedTTL = 10 * time.Minute

// Exchanger is the one backend call the reconciler needs.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*apiclient.TokenResponse, error)
}

// Outcome is a terminal state of the reconciliation: where to send the user,
// and for failures, a message and an explicit delay so the message stays
// readable before navigation discards it. The delay is declared, not slept;
// the HTTP layer renders it and tests assert it without waiting.
type Outcome struct {
	Target  string
	Delay   time.Duration
	Message string
}

func (o Outcome) Failed() bool {
	return o.Target == TargetLogin
}

// exchangeMemo records the result of spending one authorization code.
type exchangeMemo struct {
	tokens *apiclient.TokenResponse
	err    error
	at     time.Time
}

// Reconciler runs the redirect-back state machine: parse the location,
// exchange or store credentials, decide where to navigate. Shared across
// sessions; the re-entrancy memo is keyed by (session, code) so a callback URL
// replayed from another browser session must spend the code itself rather than
// inherit a memoized exchange.
type Reconciler struct {
	failureDelay time.Duration
	now          func() time.Time

	flight    singleflight.Group
	mu        sync.Mutex
	processed map[string]*exchangeMemo
}

// NewReconciler creates a reconciler whose failure terminal declares
// failureDelay before navigating back to login.
func NewReconciler(failureDelay time.Duration) *Reconciler {
	return &Reconciler{
		failureDelay: failureDelay,
		now:          time.Now,
		processed:    make(map[string]*exchangeMemo),
	}
}

// Reconcile drives one parsed Result to a terminal Outcome. The exchange call
// completes (success or failure) before any navigation decision is returned,
// and a code a session already spent is never exchanged again for that
// session: a re-render of the callback page replays the memoized outcome
// instead of burning the one-time code at the provider. A different session
// presenting the same code gets no memo and exchanges for itself, which the
// provider rejects once the code is spent.
func (r *Reconciler) Reconcile(ctx context.Context, creds credstore.Credentials, api Exchanger, result Result) Outcome {
	switch result.Kind {
	case KindProviderError:
		log.LogWarnWithFields("callback", "Provider rejected authorization", map[string]any{
			"error": result.ErrorCode,
		})
		return r.failure(fmt.Sprintf("Authentication error: %s", result.ErrorCode))

	case KindAuthorizationCode:
		return r.reconcileCode(ctx, creds, api, result.Code)

	case KindImplicitTokens:
		return r.reconcileImplicit(ctx, creds, result)

	default:
		return r.failure("No authorization code received")
	}
}

func (r *Reconciler) reconcileCode(ctx context.Context, creds credstore.Credentials, api Exchanger, code string) Outcome {
	memo, err := r.exchangeOnce(ctx, api, creds.Session(), code)
	if err != nil {
		// Singleflight plumbing failure, not a backend verdict.
		log.LogError("Exchange dispatch failed: %v", err)
		return r.failure("Failed to exchange authorization code for tokens")
	}

	if memo.err != nil {
		log.LogErrorWithFields("callback", "Token exchange failed", map[string]any{
			"error": memo.err.Error(),
		})
		return r.failure("Failed to exchange authorization code for tokens")
	}

	if storeErr := r.storeTokens(ctx, creds, memo.tokens); storeErr != nil {
		log.LogError("Failed to persist exchanged tokens: %v", storeErr)
		return r.failure("Failed to exchange authorization code for tokens")
	}

	return Outcome{Target: TargetDashboard}
}

// exchangeOnce spends the code at most once per session across concurrent and
// repeated reconciliations, memoizing the verdict either way. The key carries
// the session so no session can read another session's exchange result.
func (r *Reconciler) exchangeOnce(ctx context.Context, api Exchanger, session, code string) (*exchangeMemo, error) {
	key := session + "\x00" + code
	v, err, _ := r.flight.Do(key, func() (any, error) {
		if memo := r.lookup(key); memo != nil {
			return memo, nil
		}

		tokens, exchangeErr := api.ExchangeCode(ctx, code)
		memo := &exchangeMemo{tokens: tokens, err: exchangeErr, at: r.now()}
		r.remember(key, memo)
		return memo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*exchangeMemo), nil
}

func (r *Reconciler) reconcileImplicit(ctx context.Context, creds credstore.Credentials, result Result) Outcome {
	tokens := &apiclient.TokenResponse{
		IDToken:     result.IDToken,
		AccessToken: result.AccessToken,
	}
	if err := r.storeTokens(ctx, creds, tokens); err != nil {
		log.LogError("Failed to persist fragment tokens: %v", err)
		return r.failure("Failed to store credentials")
	}
	return Outcome{Target: TargetDashboard}
}

// storeTokens persists each token that is present; absent slots are left
// untouched so "not issued" stays distinguishable from "empty".
func (r *Reconciler) storeTokens(ctx context.Context, creds credstore.Credentials, tokens *apiclient.TokenResponse) error {
	slots := []struct {
		kind  credstore.Kind
		value string
	}{
		{credstore.KindIDToken, tokens.IDToken},
		{credstore.KindAccessToken, tokens.AccessToken},
		{credstore.KindRefreshToken, tokens.RefreshToken},
	}

	for _, slot := range slots {
		if slot.value == "" {
			continue
		}
		if err := creds.Set(ctx, slot.kind, slot.value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) failure(message string) Outcome {
	return Outcome{
		Target:  TargetLogin,
		Delay:   r.failureDelay,
		Message: message,
	}
}

func (r *Reconciler) lookup(key string) *exchangeMemo {
	r.mu.Lock()
	defer r.mu.Unlock()

	memo, ok := r.processed[key]
	if !ok {
		return nil
	}
	if r.now().Sub(memo.at) > processedTTL {
		delete(r.processed, key)
		return nil
	}
	return memo
}

func (r *Reconciler) remember(key string, memo *exchangeMemo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Evict stale memos while we hold the lock.
	cutoff := r.now().Add(-processedTTL)
	for k, entry := range r.processed {
		if entry.at.Before(cutoff) {
			delete(r.processed, k)
		}
	}
	r.processed[key] = memo
}
