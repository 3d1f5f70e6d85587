// Package profile maintains a live local copy of the member document and the
// view state derived from it.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
)

// TimeoutError is the terminal failure after the initial fetch exceeded its
// deadline on every attempt.
type TimeoutError struct {
	cause error
}

func (e *TimeoutError) Error() string {
	return "Connection timeout. Please check your internet connection."
}
func (e *TimeoutError) Unwrap() error { return e.cause }

// StoreError is the terminal failure for every other fetch cause.
type StoreError struct {
	cause error
}

func (e *StoreError) Error() string { return "Unable to load your profile. Please try refreshing." }
func (e *StoreError) Unwrap() error { return e.cause }

// ErrAlreadyStarted signals Start was called on a running sync.
var ErrAlreadyStarted = errors.New("profile: sync already started")

// Options tune the fetch policy. The zero value uses the production policy:
// 15s fetch timeout, 3 retries, 2s fixed backoff.
type Options struct {
	FetchTimeout time.Duration
	RetryBackoff time.Duration
	MaxRetries   int
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return o
}

// Sync owns the cached UserProfile for one member. Consumers read snapshots;
// every mutation goes through the document store, whose change notification
// is the only path back into the cache.
type Sync struct {
	docs   docstore.Store
	logger *zap.Logger
	tracer trace.Tracer
	opts   Options

	mu        sync.Mutex
	running   bool
	gen       uint64
	cached    *domain.UserProfile
	snapshots chan domain.UserProfile
	release   docstore.Unsubscribe
}

// NewSync wires dependencies.
func NewSync(docs docstore.Store, logger *zap.Logger, opts Options) *Sync {
	if logger == nil {
		logger = zap.L()
	}
	return &Sync{
		docs:   docs,
		logger: logger,
		tracer: otel.Tracer("github.com/ebasak22/Fitness/internal/profile"),
		opts:   opts.withDefaults(),
	}
}

// Start fetches the member document with the bounded retry policy, then opens
// the standing subscription. A failed Start never leaves a subscription open.
// Start may be called again after Stop.
func (s *Sync) Start(ctx context.Context, sess domain.Session) error {
	ctx, span := s.tracer.Start(ctx, "Sync.Start")
	defer span.End()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.running = true
	s.gen++
	gen := s.gen
	s.snapshots = make(chan domain.UserProfile, 1)
	s.mu.Unlock()

	initial, err := s.fetchWithRetry(ctx, sess.Phone)
	if err != nil {
		span.RecordError(err)
		s.teardown(gen)
		return err
	}

	release, err := s.docs.Subscribe(ctx, sess.Phone,
		func(doc []byte) { s.apply(gen, doc) },
		func(err error) {
			s.logger.Warn("profile subscription error", zap.String("phone", sess.Phone), zap.Error(err))
		},
	)
	if err != nil {
		span.RecordError(err)
		s.teardown(gen)
		return &StoreError{cause: fmt.Errorf("open subscription: %w", err)}
	}

	s.mu.Lock()
	if !s.running || s.gen != gen {
		// Stopped while subscribing.
		s.mu.Unlock()
		release()
		return &StoreError{cause: errors.New("sync stopped during start")}
	}
	s.release = release
	s.cached = initial
	s.publishLocked(*initial)
	s.mu.Unlock()

	s.logger.Info("profile sync started", zap.String("phone", sess.Phone))
	return nil
}

// Stop severs the subscription and closes the snapshot stream. Idempotent:
// the second and later calls are no-ops. A change notification arriving after
// Stop cannot mutate the cache.
func (s *Sync) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++
	release := s.release
	s.release = nil
	if s.snapshots != nil {
		close(s.snapshots)
		s.snapshots = nil
	}
	s.mu.Unlock()

	if release != nil {
		release()
	}
	s.logger.Info("profile sync stopped")
}

// Snapshot returns the cached profile, if any.
func (s *Sync) Snapshot() (domain.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return domain.UserProfile{}, false
	}
	return *s.cached, true
}

// Snapshots returns the stream of profile snapshots. The channel coalesces:
// a slow consumer sees the latest state, not every intermediate one. It is
// closed by Stop.
func (s *Sync) Snapshots() <-chan domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

// fetchWithRetry is the explicit bounded loop: one initial attempt plus up to
// MaxRetries re-attempts with a fixed backoff in between.
func (s *Sync) fetchWithRetry(ctx context.Context, phone string) (*domain.UserProfile, error) {
	var lastErr error
	lastTimeout := false

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.opts.RetryBackoff); err != nil {
				return nil, &StoreError{cause: err}
			}
			s.logger.Info("retrying profile fetch",
				zap.String("phone", phone),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.opts.MaxRetries))
		}

		profile, timedOut, err := s.fetchOnce(ctx, phone)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		lastTimeout = timedOut
		if ctx.Err() != nil {
			break
		}
	}

	if lastTimeout {
		return nil, &TimeoutError{cause: lastErr}
	}
	return nil, &StoreError{cause: lastErr}
}

// fetchOnce races the store call against the fetch timeout. Whichever
// settles first wins; a late store result is discarded, never applied.
func (s *Sync) fetchOnce(ctx context.Context, phone string) (*domain.UserProfile, bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	type result struct {
		raw []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := s.docs.Get(fetchCtx, phone)
		done <- result{raw: raw, err: err}
	}()

	select {
	case <-fetchCtx.Done():
		timedOut := fetchCtx.Err() == context.DeadlineExceeded
		return nil, timedOut, fetchCtx.Err()
	case res := <-done:
		if res.err != nil {
			timedOut := errors.Is(res.err, context.DeadlineExceeded)
			return nil, timedOut, res.err
		}
		var profile domain.UserProfile
		if err := json.Unmarshal(res.raw, &profile); err != nil {
			return nil, false, fmt.Errorf("decode member document: %w", err)
		}
		return &profile, false, nil
	}
}

// apply replaces the cached profile from a change notification. Events from
// a superseded generation are dropped: the subscription has been severed.
func (s *Sync) apply(gen uint64, doc []byte) {
	var profile domain.UserProfile
	if err := json.Unmarshal(doc, &profile); err != nil {
		s.logger.Warn("dropping malformed profile change", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.gen != gen {
		return
	}
	s.cached = &profile
	s.publishLocked(profile)
}

// publishLocked pushes a snapshot, replacing a pending unread one.
func (s *Sync) publishLocked(p domain.UserProfile) {
	if s.snapshots == nil {
		return
	}
	select {
	case s.snapshots <- p:
	default:
		select {
		case <-s.snapshots:
		default:
		}
		s.snapshots <- p
	}
}

func (s *Sync) teardown(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.running = false
	s.gen++
	if s.snapshots != nil {
		close(s.snapshots)
		s.snapshots = nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
