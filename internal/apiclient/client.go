package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/consolehq/admin-front/internal/credstore"
	"github.com/consolehq/admin-front/internal/log"
)

// TokenResponse is the body of a successful code exchange. Any subset of the
// three tokens may be present.
type TokenResponse struct {
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Identity is the backend's answer to "who am I".
type Identity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Locale      string   `json:"locale"`
	Roles       []string `json:"roles"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	DisplayName string `json:"displayName"`
	Locale      string `json:"locale"`
}

// AdminUser is one row of the user management table.
type AdminUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
}

// AuditEntry is one row of the audit log table.
type AuditEntry struct {
	ID        string    `json:"id"`
	User      AuditUser `json:"user"`
	EventType string    `json:"eventType"`
	IPAddress string    `json:"ipAddress"`
	LoginTime time.Time `json:"loginTime"`
}

// AuditUser identifies the actor of an audit entry.
type AuditUser struct {
	DisplayName string `json:"displayName"`
}

// ClientOpts configures a backend API client.
type ClientOpts struct {
	// BaseURL is the backend API root, e.g. "http://localhost:8080".
	BaseURL string
	// Timeout bounds every request including retries. Zero means 30s.
	Timeout time.Duration
}

// Client wraps every outbound call to the protected backend API. It resolves
// the bearer credential per request (ID token first, then access token, then
// unauthenticated) and classifies every failure. It never redirects.
type Client struct {
	httpClient *resty.Client
	creds      credstore.Credentials
}

// credsContextKey carries a request's credential view to the bearer middleware
// so one shared transport can serve every session.
type credsContextKey struct{}

// Factory owns the shared resty client and its transport. Construct one per
// backend and derive per-session Clients from it; connections are pooled
// across sessions while the bearer header stays per request.
type Factory struct {
	httpClient *resty.Client
}

// NewFactory builds the shared backend client.
func NewFactory(opts ClientOpts) *Factory {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only idempotent reads retry, and only on transient failures.
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= 500
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			creds, ok := req.Context().Value(credsContextKey{}).(credstore.Credentials)
			if !ok {
				return nil
			}
			bearer, err := creds.Bearer(req.Context())
			if errors.Is(err, credstore.ErrNotFound) {
				// No credential: send unauthenticated, the backend decides.
				return nil
			}
			if err != nil {
				return &Error{Kind: FailureTransient, Message: err.Error()}
			}
			req.SetHeader("Authorization", "Bearer "+bearer)
			return nil
		}).
		OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
			log.LogDebugWithFields("apiclient", "API response", map[string]any{
				"method":      res.Request.Method,
				"url":         res.Request.URL,
				"status":      res.StatusCode(),
				"duration_ms": res.Time().Milliseconds(),
			})
			return nil
		})

	return &Factory{httpClient: httpClient}
}

// Session binds the shared client to one console session's credentials.
func (f *Factory) Session(creds credstore.Credentials) *Client {
	return &Client{httpClient: f.httpClient, creds: creds}
}

// New creates a backend API client bound to one console session's credentials,
// with a transport of its own. Long-lived callers should construct a Factory
// once and derive sessions from it instead.
func New(opts ClientOpts, creds credstore.Credentials) *Client {
	return NewFactory(opts).Session(creds)
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	ctx = context.WithValue(ctx, credsContextKey{}, c.creds)
	request := c.httpClient.NewRequest().SetContext(ctx)
	if result != nil {
		request.SetResult(result)
	}
	return request
}

// classify turns a resty outcome into nil or a classified *Error.
func classify(res *resty.Response, err error) error {
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		// Transport-level failure: timeout, refused connection, DNS.
		return &Error{Kind: FailureTransient, Message: err.Error()}
	}
	if res.IsError() {
		return &Error{
			Kind:    classifyStatus(res.StatusCode()),
			Status:  res.StatusCode(),
			Message: string(res.Body()),
		}
	}
	return nil
}

// ExchangeCode trades an authorization code for tokens at the backend's
// exchange endpoint. Invalid, expired, and reused codes come back non-2xx.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	result := &TokenResponse{}
	res, err := c.req(ctx, result).
		SetQueryParam("code", code).
		Post("/auth/token")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// Me fetches the current identity.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	result := &Identity{}
	res, err := c.req(ctx, result).Get("/api/v1/me")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProfile patches the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Identity, error) {
	result := &Identity{}
	res, err := c.req(ctx, result).
		SetBody(update).
		Patch("/api/v1/me")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// ListUsers fetches the user management table.
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	var result []AdminUser
	res, err := c.req(ctx, &result).Get("/api/v1/admin/users")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// AuditLog fetches the audit log table.
func (c *Client) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	var result []AuditEntry
	res, err := c.req(ctx, &result).Get("/api/v1/admin/audit-log")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// TokenProbe asks the backend to describe how it sees the current bearer
// credential. Display-only, used by the token debug page.
func (c *Client) TokenProbe(ctx context.Context) (map[string]any, error) {
	result := map[string]any{}
	res, err := c.req(ctx, &result).Get("/api/v1/token-debug")
	if err := classify(res, err); err != nil {
		return nil, err
	}
	return result, nil
}

// Logout asks the backend to invalidate the server-side session. Best effort:
// callers ignore failures and clear local credentials regardless.
func (c *Client) Logout(ctx context.Context) error {
	res, err := c.req(ctx, nil).Post("/sessions/logout")
	return classify(res, err)
}
