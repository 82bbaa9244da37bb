// Package session holds the client side session state: who is signed in,
// whether that is still being worked out, and the transitions between the
// two driven by restore, login and logout.
//
// Every operation takes a sequence number when it starts. Its result is
// applied only if no newer operation has started in the meantime, so a slow
// restore can never overwrite a login that finished first.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/internal/client"
	"github.com/wolfeidau/hrms/internal/models"
	"github.com/wolfeidau/hrms/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrSuperseded is returned by Login when a newer operation (another login,
// a logout or an expiry) started before it finished. Its result was dropped.
var ErrSuperseded = errors.New("session operation superseded by a newer one")

// DefaultBackgroundTimeout bounds background validation and logout calls.
const DefaultBackgroundTimeout = 30 * time.Second

// IdentityClient is the network side of the session.
// FetchCurrentIdentity returns nil, nil when the server reports no session.
type IdentityClient interface {
	FetchCurrentIdentity(ctx context.Context) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (*models.Identity, error)
	Logout(ctx context.Context) error
}

// Store owns the session state. Create one per process and share it.
type Store struct {
	client            IdentityClient
	snapshot          Snapshot
	backgroundTimeout time.Duration
	metrics           *telemetry.Metrics

	mu    sync.Mutex
	state State
	seq   uint64

	restoreOnce sync.Once
	background  sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithBackgroundTimeout overrides DefaultBackgroundTimeout.
func WithBackgroundTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.backgroundTimeout = d
	}
}

// NewStore creates a store in the Initializing phase. A nil snapshot means
// nothing is persisted between runs.
func NewStore(c IdentityClient, snapshot Snapshot, opts ...Option) *Store {
	if snapshot == nil {
		snapshot = NewMemorySnapshot(nil)
	}

	s := &Store{
		client:            c,
		snapshot:          snapshot,
		backgroundTimeout: DefaultBackgroundTimeout,
		metrics:           telemetry.GetMetrics(),
		state:             State{Phase: Initializing, Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns a copy of the current state. It never touches the network.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// CurrentIdentity returns the signed-in identity, or nil.
func (s *Store) CurrentIdentity() *models.Identity {
	return s.State().Identity
}

// Restore settles the Initializing phase. It runs once per store; later calls
// return the current state.
//
// With a snapshot on disk the store becomes Authenticated straight away and
// checks the identity with the server in the background, correcting itself if
// the server disagrees. Without one it waits for the server.
func (s *Store) Restore(ctx context.Context) State {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
	})
	return s.State()
}

func (s *Store) restore(ctx context.Context) {
	seq := s.begin(false)

	cached, err := s.snapshot.Load()
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable session snapshot")
		if err := s.snapshot.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear session snapshot")
		}
		cached = nil
	}

	if cached != nil {
		applied := s.commit(seq, func() {
			s.setState(State{Phase: Authenticated, Identity: cached.Clone()})
		})
		if !applied {
			return
		}

		s.metrics.SessionRestoreTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", "snapshot"),
		))
		log.Debug().Str("user", cached.Email).Msg("session restored from snapshot, validating")

		s.runBackground(ctx, func(ctx context.Context) {
			identity, err := s.client.FetchCurrentIdentity(ctx)
			if err != nil {
				s.backgroundFailure(ctx, "validate", err)
			}
			s.settle(seq, identity, err)
		})
		return
	}

	identity, err := s.client.FetchCurrentIdentity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session restore failed")
	}
	s.metrics.SessionRestoreTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", "server"),
	))
	s.settle(seq, identity, err)
}

// Login signs in with the given credentials. The email is normalized first.
// On failure the store is left Anonymous with the snapshot cleared and the
// error is returned unchanged so the caller can tell bad credentials
// (*client.AuthenticationError) from a failed request (*client.TransportError).
func (s *Store) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	creds := models.Credentials{Email: models.NormalizeEmail(email), Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	seq := s.begin(true)
	started := time.Now()
	s.metrics.LoginAttemptsTotal.Add(ctx, 1)

	identity, err := s.client.Login(ctx, creds.Email, creds.Password)
	if err == nil && identity == nil {
		err = &client.TransportError{Op: "login", Err: errors.New("no identity returned")}
	}

	s.metrics.LoginDuration.Record(ctx, float64(time.Since(started).Milliseconds()))

	applied := s.commit(seq, func() {
		if err != nil {
			s.clearSnapshot()
			s.setState(State{Phase: Anonymous})
			return
		}
		s.saveSnapshot(identity)
		s.setState(State{Phase: Authenticated, Identity: identity.Clone()})
	})

	if err != nil {
		s.metrics.LoginFailuresTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", errorKind(err)),
		))
		log.Debug().Err(err).Str("kind", errorKind(err)).Msg("login failed")
		return nil, err
	}
	if !applied {
		return nil, ErrSuperseded
	}

	log.Info().Str("user", identity.Email).Msg("logged in")

	return identity.Clone(), nil
}

// Logout clears the session locally before returning and tells the server in
// the background. It cannot fail; a failed server call is only logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	s.clearSnapshot()
	s.setState(State{Phase: Anonymous})
	s.mu.Unlock()

	log.Debug().Msg("logged out locally, notifying server")

	s.runBackground(ctx, func(ctx context.Context) {
		if err := s.client.Logout(ctx); err != nil {
			s.backgroundFailure(ctx, "logout", err)
		}
	})
}

// Revalidate asks the server whether the session is still valid and settles
// on its answer. Absent or failed answers leave the store Anonymous.
func (s *Store) Revalidate(ctx context.Context) State {
	// a revalidation also settles Initializing, so a later Restore is a no-op
	s.restoreOnce.Do(func() {})

	seq := s.begin(false)

	identity, err := s.client.FetchCurrentIdentity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session revalidation failed")
	}
	s.settle(seq, identity, err)

	return s.State()
}

// Expire drops the session after the server rejected it, e.g. a 401 from a
// resource call.
func (s *Store) Expire(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.clearSnapshot()
	s.setState(State{Phase: Anonymous})

	s.metrics.UnauthorizedTotal.Add(context.Background(), 1)
	log.Info().Str("reason", reason).Msg("session expired")
}

// Wait blocks until background validation and logout calls have finished.
func (s *Store) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin starts an operation and returns its sequence number.
func (s *Store) begin(loading bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if loading {
		s.state.Loading = true
	}

	return s.seq
}

// commit runs apply under the lock if seq is still the newest operation.
func (s *Store) commit(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.metrics.StaleResultsDiscarded.Add(context.Background(), 1)
		log.Debug().Uint64("seq", seq).Uint64("current", s.seq).Msg("discarding stale session result")
		return false
	}

	apply()
	return true
}

// settle applies a restore or validation answer. A failed request leaves the
// snapshot alone since the server never rejected it.
func (s *Store) settle(seq uint64, identity *models.Identity, err error) {
	s.commit(seq, func() {
		switch {
		case err != nil:
			s.setState(State{Phase: Anonymous})
		case identity == nil:
			s.clearSnapshot()
			s.setState(State{Phase: Anonymous})
		default:
			// a confirmed identity is already what the snapshot holds
			if !identity.Equal(s.state.Identity) {
				s.saveSnapshot(identity)
			}
			s.setState(State{Phase: Authenticated, Identity: identity.Clone()})
		}
	})
}

// setState must be called with mu held.
func (s *Store) setState(next State) {
	if s.state.Phase != next.Phase {
		s.metrics.SessionTransitionsTotal.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("from", s.state.Phase.String()),
			attribute.String("to", next.Phase.String()),
		))
		log.Debug().Stringer("from", s.state.Phase).Stringer("to", next.Phase).Msg("session transition")
	}
	s.state = next
}

// saveSnapshot must be called with mu held.
func (s *Store) saveSnapshot(identity *models.Identity) {
	if err := s.snapshot.Save(identity); err != nil {
		log.Warn().Err(err).Msg("failed to save session snapshot")
	}
}

// clearSnapshot must be called with mu held.
func (s *Store) clearSnapshot() {
	if err := s.snapshot.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session snapshot")
	}
}

func (s *Store) runBackground(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.backgroundTimeout)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		fn(ctx)
	}()
}

func (s *Store) backgroundFailure(ctx context.Context, op string, err error) {
	s.metrics.BackgroundFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
	))
	log.Warn().Err(err).Str("op", op).Msg("background session call failed")
}

func errorKind(err error) string {
	var verr *models.ValidationError
	switch {
	case client.IsAuthentication(err):
		return "authentication"
	case errors.As(err, &verr):
		return "validation"
	case client.IsTransport(err):
		return "transport"
	default:
		return "unknown"
	}
}
