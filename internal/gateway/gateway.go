// Package gateway performs the authenticated calls to the dashboard backend.
// Every call goes through Call, which attaches the bearer credential and maps
// responses onto one error taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/session"
)

const maxResponseBytes = 8 << 20

// Redirector sends the user back to the login surface after the session
// was rejected by the server.
type Redirector interface {
	Redirect(reason error)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(reason error)

func (f RedirectFunc) Redirect(reason error) { f(reason) }

// Gateway is the typed client for the backend REST surface.
type Gateway struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      *session.Store
	redirector Redirector
	userAgent  string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithRedirector installs the handler invoked once per rejected session.
func WithRedirector(r Redirector) Option {
	return func(g *Gateway) { g.redirector = r }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Gateway) { g.userAgent = ua }
}

// New creates a Gateway for baseURL reading credentials from store. It also
// registers itself as the store's remote logout hook.
func New(baseURL string, store *session.Store, opts ...Option) (*Gateway, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	g := &Gateway{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		store:      store,
		userAgent:  "orgdash",
	}
	for _, opt := range opts {
		opt(g)
	}
	store.SetRemoteLogout(g.RemoteLogout)
	return g, nil
}

// Call performs an authenticated request and returns the raw JSON body.
//
// With no live session it fails with ErrUnauthenticated before any I/O. A 401
// tears the session down (at most once per token), redirects, and yields
// ErrSessionExpired. Other failures leave the session untouched.
func (g *Gateway) Call(ctx context.Context, endpoint, method string, body any) (json.RawMessage, error) {
	sess, err := g.store.Current()
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return g.do(ctx, endpoint, method, body, sess.Token)
}

func (g *Gateway) do(ctx context.Context, endpoint, method string, body any, token string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.resolve(endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		internal.LogDebug("%s %s [%s] failed after %v: %v", method, endpoint, requestID, time.Since(start), err)
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}
	internal.LogDebug("%s %s [%s] -> %d in %v", method, endpoint, requestID, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized && token != "":
		if g.store.Expire(token) {
			internal.LogWarn("Session rejected by %s, logging out", endpoint)
			if g.redirector != nil {
				g.redirector.Redirect(ErrSessionExpired)
			}
		}
		return nil, ErrSessionExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &RequestFailedError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  errorMessage(raw, resp.StatusCode),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

func (g *Gateway) resolve(endpoint string) string {
	u := *g.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	return u.String()
}

// errorMessage extracts the server's explanation from an error body.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch d := body.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func decode[T any](raw json.RawMessage, endpoint string) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &internal.ParseError{Source: endpoint, Err: err}
	}
	return out, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Role    string          `json:"role"`
	OrgID   internal.FlexID `json:"org_id"`
	OrgName string          `json:"org_name"`
	UserID  internal.FlexID `json:"user_id"`
}

// Login exchanges credentials for a session and saves it in the store.
// Empty credentials are rejected without a request.
func (g *Gateway) Login(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Session{}, &LoginError{Message: "username and password are required"}
	}

	raw, err := g.do(ctx, EndpointLogin, http.MethodPost, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		var failed *RequestFailedError
		if errors.As(err, &failed) {
			return session.Session{}, &LoginError{Message: failed.Message}
		}
		return session.Session{}, err
	}

	resp, err := decode[loginResponse](raw, EndpointLogin)
	if err != nil {
		return session.Session{}, err
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "invalid credentials"
		}
		return session.Session{}, &LoginError{Message: msg}
	}

	sess := session.Session{
		Token:            resp.Token,
		Role:             session.Role(resp.Role),
		OrganizationID:   resp.OrgID.String(),
		OrganizationName: resp.OrgName,
		UserID:           resp.UserID.String(),
	}
	if !sess.Role.Known() {
		internal.LogWarn("Server returned unrecognized role %q, treating as member", resp.Role)
	}
	if err := g.store.Save(sess); err != nil {
		return session.Session{}, err
	}
	return g.store.Current()
}

// RemoteLogout asks the server to drop token. Failures are logged and otherwise ignored.
func (g *Gateway) RemoteLogout(ctx context.Context, token string) {
	if _, err := g.do(ctx, EndpointLogout, http.MethodPost, nil, token); err != nil {
		internal.LogDebug("Remote logout failed: %v", err)
	}
}

// Verification is the /dashboard/verify result.
type Verification struct {
	Valid    bool            `json:"valid"`
	Role     string          `json:"role"`
	OrgID    internal.FlexID `json:"org_id"`
	Username string          `json:"username"`
}

// Verify checks the current session with the server.
func (g *Gateway) Verify(ctx context.Context) (Verification, error) {
	raw, err := g.Call(ctx, EndpointVerify, http.MethodGet, nil)
	if err != nil {
		return Verification{}, err
	}
	return decode[Verification](raw, EndpointVerify)
}
