package apiclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRefreshFailed is returned to every caller waiting on a refresh attempt
// that did not produce a new credential pair. The session is torn down; the
// user must authenticate again.
var ErrRefreshFailed = errors.New("credential refresh failed")

// Credentials is the client-held pair: a signed access token plus the opaque
// refresh token that can mint its successor.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshFunc performs the refresh round-trip against the server.
type RefreshFunc func(ctx context.Context, accessToken, refreshToken string) (*Credentials, error)

// flight is one in-progress refresh attempt. done is closed exactly once,
// after creds/err are set.
type flight struct {
	done  chan struct{}
	creds *Credentials
	err   error
}

// Coordinator serializes credential refreshes for one client session. The
// first caller to observe a rejected access token starts the refresh; every
// caller arriving while it is in flight waits on the same result instead of
// issuing another call. At most one refresh is ever in flight.
//
// The coordinator holds no ambient state: construct one per session and
// inject it wherever requests are issued.
type Coordinator struct {
	mu      sync.Mutex
	current *flight
	refresh RefreshFunc
}

func NewCoordinator(refresh RefreshFunc) *Coordinator {
	return &Coordinator{refresh: refresh}
}

// Refresh returns a fresh credential pair, either by performing the refresh
// call itself or by waiting for one already in flight. All concurrent callers
// observe the same outcome: the same new pair, or the same failure.
func (c *Coordinator) Refresh(ctx context.Context, accessToken, refreshToken string) (*Credentials, error) {
	c.mu.Lock()
	if f := c.current; f != nil {
		c.mu.Unlock()
		return c.wait(ctx, f)
	}

	f := &flight{done: make(chan struct{})}
	c.current = f
	c.mu.Unlock()

	c.run(ctx, f, accessToken, refreshToken)
	return f.creds, f.err
}

// run executes the refresh call and resolves the flight. Resolution happens
// in a defer so waiters are released even if the call panics or the
// initiator's context is cancelled mid-flight.
func (c *Coordinator) run(ctx context.Context, f *flight, accessToken, refreshToken string) {
	defer func() {
		r := recover()
		if f.creds == nil && f.err == nil {
			f.err = ErrRefreshFailed
		}

		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
		close(f.done)

		if r != nil {
			panic(r)
		}
	}()

	creds, err := c.refresh(ctx, accessToken, refreshToken)
	if err != nil {
		f.err = ErrRefreshFailed
		return
	}
	f.creds = creds
}

// wait blocks until the in-flight refresh resolves or the caller's context
// is cancelled. A cancelled waiter does not affect the refresh itself.
func (c *Coordinator) wait(ctx context.Context, f *flight) (*Credentials, error) {
	select {
	case <-f.done:
		return f.creds, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
