package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrSessionExpired is returned when the session cannot be recovered: the
// refresh attempt was rejected and local credentials have been erased.
var ErrSessionExpired = errors.New("session expired, authentication required")

// Client wraps an HTTP client with credential attachment and transparent
// refresh-and-replay. When a request comes back 401, the client obtains a
// fresh pair through the Coordinator and replays the request exactly once; a
// second 401 is surfaced to the caller as-is.
type Client struct {
	base       string
	httpClient *http.Client
	coord      *Coordinator

	mu    sync.RWMutex
	creds Credentials

	// onSessionExpired runs after a failed refresh tears the session down.
	onSessionExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionExpiredHandler registers a callback invoked once when a refresh
// fails and the session is torn down.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// New creates a Client for the given API base URL. The refresh round-trip is
// performed against the server's refresh endpoint.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.coord = NewCoordinator(c.refreshCall)
	return c
}

// SetCredentials installs the pair obtained from login or registration.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

// Credentials returns the currently held pair.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Do sends an authenticated request. The body, if any, is buffered so the
// request can be replayed after a refresh.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	creds := c.Credentials()

	resp, err := c.send(ctx, method, path, body, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isCredentialEndpoint(path) {
		return resp, nil
	}

	// Rejected credential: coordinate a refresh and replay once.
	resp.Body.Close()

	// Another caller may have rotated the pair while this request was in
	// flight. Refreshing with the stale snapshot would be rejected and tear
	// down a valid session, so replay with the current credential instead.
	if cur := c.Credentials(); cur.AccessToken != creds.AccessToken {
		return c.send(ctx, method, path, body, cur.AccessToken)
	}

	fresh, err := c.coord.Refresh(ctx, creds.AccessToken, creds.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshFailed) {
			c.teardown()
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	c.SetCredentials(*fresh)

	// Replay with the new credential. A second 401 here is terminal and
	// returned to the caller untouched.
	return c.send(ctx, method, path, body, fresh.AccessToken)
}

// isCredentialEndpoint reports whether the path itself issues credentials. A
// 401 from one of these means the submitted credentials were rejected;
// refreshing and replaying would loop. Other /auth/ paths, like the profile
// and revoke endpoints, are ordinary authenticated calls.
func isCredentialEndpoint(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", "/auth/refresh-token":
		return true
	}
	return false
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, accessToken string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.httpClient.Do(req)
}

// refreshCall is the RefreshFunc wired into the Coordinator: one POST to the
// refresh endpoint carrying the expired access token and the refresh token.
func (c *Client) refreshCall(ctx context.Context, accessToken, refreshToken string) (*Credentials, error) {
	payload, err := json.Marshal(map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/refresh-token", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrRefreshFailed
	}

	var body struct {
		Data struct {
			AccessToken           string `json:"accessToken"`
			RefreshToken          string `json:"refreshToken"`
			AccessTokenExpiration string `json:"accessTokenExpiration"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Data.AccessToken == "" || body.Data.RefreshToken == "" {
		return nil, ErrRefreshFailed
	}

	return &Credentials{
		AccessToken:  body.Data.AccessToken,
		RefreshToken: body.Data.RefreshToken,
	}, nil
}

// User is the profile shape returned by the auth endpoints.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	FullName  string   `json:"fullName"`
	Roles     []string `json:"roles"`
	IsActive  bool     `json:"isActive"`
}

type authResult struct {
	Data struct {
		AccessToken           string    `json:"accessToken"`
		RefreshToken          string    `json:"refreshToken"`
		AccessTokenExpiration time.Time `json:"accessTokenExpiration"`
		User                  *User     `json:"user"`
	} `json:"data"`
	Message string `json:"message"`
}

// Login authenticates with email and password and installs the returned
// credential pair.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and installs the returned credential pair.
func (c *Client) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	return c.authenticate(ctx, "/auth/register", map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": password,
		"firstName":       firstName,
		"lastName":        lastName,
	})
}

// Logout revokes the server-side refresh slot and erases local credentials.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodPost, "/auth/revoke-token", nil)
	if err != nil && !errors.Is(err, ErrSessionExpired) {
		return err
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.creds = Credentials{}
	c.mu.Unlock()
	return nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data *User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload map[string]string) (*User, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result authResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if result.Message != "" {
			return nil, errors.New(result.Message)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.SetCredentials(Credentials{
		AccessToken:  result.Data.AccessToken,
		RefreshToken: result.Data.RefreshToken,
		ExpiresAt:    result.Data.AccessTokenExpiration,
	})
	return result.Data.User, nil
}

// teardown erases local credentials and notifies the session handler.
func (c *Client) teardown() {
	c.mu.Lock()
	c.creds = Credentials{}
	c.mu.Unlock()

	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
