package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iksnae/orgdash/internal"
)

// RemoteLogout tears the session down on the server. It is best effort: the
// store never waits for it before clearing local state.
type RemoteLogout func(ctx context.Context, token string)

// Store is the single owner of the session. Every other component reads
// copies obtained from Current.
type Store struct {
	mu        sync.Mutex
	persister Persister
	current   *Session

	ttl           time.Duration
	now           func() time.Time
	logout        RemoteLogout
	logoutTimeout time.Duration
	pending       sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the client-side session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogoutTimeout bounds each remote logout call.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// NewStore creates a Store over p.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister:     p,
		ttl:           DefaultTTL,
		now:           time.Now,
		logoutTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRemoteLogout installs the remote teardown hook. It is set after
// construction because the gateway that implements it depends on the store.
func (s *Store) SetRemoteLogout(fn RemoteLogout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logout = fn
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Load reads the persisted session and makes it current. It fails with
// ErrNoSession when no token is stored, and with ErrNoSession+ErrExpired after
// invalidating a session older than the TTL.
func (s *Store) Load() (Session, error) {
	values, err := s.persister.Read()
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}

	sess, ok := fromValues(values)
	if !ok {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return Session{}, ErrNoSession
	}

	if !sess.IssuedAt.IsZero() && s.now().After(sess.ExpiresAt(s.ttl)) {
		internal.LogInfo("Session issued at %s has expired", sess.IssuedAt.Format(time.RFC3339))
		s.mu.Lock()
		s.current = &sess
		s.clearLocked()
		s.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %w", ErrNoSession, ErrExpired)
	}
	if sess.IssuedAt.IsZero() {
		internal.LogDebug("Stored session has no login timestamp, skipping expiry check")
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return sess, nil
}

// Current returns the live session.
func (s *Store) Current() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, ErrNoSession
	}
	return *s.current, nil
}

// Alive reports whether token is still the live session's token.
func (s *Store) Alive(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Token == token
}

// Save persists sess as one group and makes it current.
func (s *Store) Save(sess Session) error {
	if sess.Token == "" {
		return errors.New("session token is empty")
	}
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persister.Write(sess.values()); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.current = &sess
	return nil
}

// Invalidate clears the persisted and in-memory session. It is idempotent.
// A remote logout for the cleared token is started in the background.
func (s *Store) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		// Nothing loaded yet; a stored token still deserves a remote logout.
		if values, err := s.persister.Read(); err == nil {
			if sess, ok := fromValues(values); ok {
				s.current = &sess
			}
		}
	}
	return s.clearLocked()
}

// Expire invalidates the session only if token is still live, and reports
// whether this call performed the invalidation. Concurrent rejections of the
// same token therefore tear the session down exactly once.
func (s *Store) Expire(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.Token != token {
		return false
	}
	if err := s.clearLocked(); err != nil {
		internal.LogWarn("Session cleared in memory but not on disk: %v", err)
	}
	return true
}

// Drain waits for background remote logouts to finish or ctx to end.
func (s *Store) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clearLocked drops the session and schedules the remote logout. The
// in-memory copy is dropped even when the persister fails. s.mu must be held.
func (s *Store) clearLocked() error {
	token := ""
	if s.current != nil {
		token = s.current.Token
	}
	s.current = nil

	err := s.persister.Clear()
	if err != nil {
		internal.LogError("Failed to clear stored session: %v", err)
	}

	if token != "" && s.logout != nil {
		logout, timeout := s.logout, s.logoutTimeout
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			logout(ctx, token)
		}()
	}
	return err
}
