// Package session implements the registration/login flow: phone entry, OTP
// challenge, verification, and routing into profile completion or the
// dashboard.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/identity"
)

// State is the bootstrap position in the login flow.
type State string

const (
	StatePhoneEntry    State = "phone_entry"
	StateOTPSent       State = "otp_sent"
	StateVerifying     State = "verifying"
	StateAuthenticated State = "authenticated"
)

// Route tells the caller which screen follows a successful verification.
type Route string

const (
	RouteCompleteProfile Route = "complete_profile"
	RouteDashboard       Route = "dashboard"
)

// ValidationError reports locally rejected input. It never reaches the
// identity provider or the document store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrNoChallenge signals VerifyOTP was called with no outstanding challenge.
var ErrNoChallenge = errors.New("session: no outstanding challenge, request OTP first")

// AuthError is the generic verification failure shown to the user. Wrong
// code, expired challenge, and document store failures all collapse into it
// so the message leaks nothing about which one occurred.
type AuthError struct {
	cause error
}

func (e *AuthError) Error() string { return "invalid OTP or verification failed" }
func (e *AuthError) Unwrap() error { return e.cause }

const minPhoneDigits = 10

// challenge is the single outstanding OTP challenge. It lives only in the
// bootstrap's working memory and is replaced wholesale on every re-request.
type challenge struct {
	id           string
	phone        string
	confirmation identity.Confirmation
	createdAt    time.Time
}

// Options tune bootstrap behaviour. The zero value uses defaults.
type Options struct {
	// ResendInterval throttles challenge requests per phone locally, on top
	// of whatever limits the provider enforces. Zero disables the throttle.
	ResendInterval time.Duration
	// SessionTTL caps the stored session lifetime when the credential
	// carries no expiry.
	SessionTTL time.Duration
	Clock      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.SessionTTL <= 0 {
		o.SessionTTL = time.Hour
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Bootstrap drives the OTP login state machine. Methods are safe for
// concurrent use; the challenge and state are guarded by one mutex so that
// ChangePhone invalidates the handle before any interleaved task can run.
type Bootstrap struct {
	provider identity.Provider
	docs     docstore.Store
	sessions Store
	node     *snowflake.Node
	logger   *zap.Logger
	tracer   trace.Tracer
	opts     Options

	mu        sync.Mutex
	state     State
	challenge *challenge
	resend    map[string]*rate.Limiter
}

// NewBootstrap wires dependencies.
func NewBootstrap(provider identity.Provider, docs docstore.Store, sessions Store, node *snowflake.Node, logger *zap.Logger, opts Options) *Bootstrap {
	if logger == nil {
		logger = zap.L()
	}
	return &Bootstrap{
		provider: provider,
		docs:     docs,
		sessions: sessions,
		node:     node,
		logger:   logger,
		tracer:   otel.Tracer("github.com/ebasak22/Fitness/internal/session"),
		opts:     opts.withDefaults(),
		state:    StatePhoneEntry,
		resend:   make(map[string]*rate.Limiter),
	}
}

// State returns the current position in the flow.
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RequestOTP validates the phone locally, then asks the provider to issue a
// challenge. Issuing a new challenge invalidates any previous one. Provider
// errors pass through untranslated and are never retried here: the user must
// re-request explicitly.
func (b *Bootstrap) RequestOTP(ctx context.Context, phone string) error {
	ctx, span := b.startSpan(ctx, "Bootstrap.RequestOTP")
	defer span.End()

	trimmed := strings.TrimSpace(phone)
	if len(digitsOf(trimmed)) < minPhoneDigits {
		return &ValidationError{Field: "phone", Message: "please enter a valid phone number"}
	}
	if !b.allowResend(trimmed) {
		return fmt.Errorf("%w: resend throttled", identity.ErrRateLimited)
	}

	confirmation, err := b.provider.SendChallenge(ctx, trimmed)
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("otp challenge failed", zap.String("phone", maskPhone(trimmed)), zap.Error(err))
		return err
	}

	b.mu.Lock()
	b.challenge = &challenge{
		id:           uuid.NewString(),
		phone:        trimmed,
		confirmation: confirmation,
		createdAt:    b.opts.Clock(),
	}
	b.state = StateOTPSent
	b.mu.Unlock()

	b.logger.Info("otp challenge sent", zap.String("phone", maskPhone(trimmed)))
	return nil
}

// VerifyOTP exchanges the submitted code for a credential, then reads or
// creates the member document and decides the route. Wrong codes and store
// failures both come back as *AuthError with the challenge kept outstanding.
func (b *Bootstrap) VerifyOTP(ctx context.Context, code string) (domain.Session, Route, error) {
	ctx, span := b.startSpan(ctx, "Bootstrap.VerifyOTP")
	defer span.End()

	b.mu.Lock()
	if b.challenge == nil {
		b.mu.Unlock()
		return domain.Session{}, "", ErrNoChallenge
	}
	cleaned := digitsOf(code)
	if len(cleaned) != 6 {
		b.mu.Unlock()
		return domain.Session{}, "", &ValidationError{Field: "otp", Message: "please enter the 6-digit code"}
	}
	current := b.challenge
	b.state = StateVerifying
	b.mu.Unlock()

	cred, err := current.confirmation.Verify(ctx, cleaned)

	b.mu.Lock()
	// ChangePhone or a newer RequestOTP may have replaced the challenge while
	// the remote call was in flight; a stale handle must never be consumed.
	if b.challenge == nil || b.challenge.id != current.id {
		b.mu.Unlock()
		return domain.Session{}, "", ErrNoChallenge
	}
	if err != nil {
		b.state = StateOTPSent
		b.mu.Unlock()
		span.RecordError(err)
		b.logger.Warn("otp verification failed", zap.String("phone", maskPhone(current.phone)), zap.Error(err))
		return domain.Session{}, "", &AuthError{cause: err}
	}
	b.mu.Unlock()

	route, err := b.resolveRoute(ctx, current.phone, cred)
	if err != nil {
		b.mu.Lock()
		if b.challenge != nil && b.challenge.id == current.id {
			b.state = StateOTPSent
		}
		b.mu.Unlock()
		span.RecordError(err)
		return domain.Session{}, "", &AuthError{cause: err}
	}

	sess, err := b.createSession(ctx, current.phone, cred)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, "", fmt.Errorf("persist session: %w", err)
	}

	b.mu.Lock()
	// Recheck once more before committing: ChangePhone may have landed while
	// the document read or the session write was in flight. The stored
	// session is rolled back so the discarded handle leaves nothing behind.
	if b.challenge == nil || b.challenge.id != current.id {
		b.mu.Unlock()
		if delErr := b.sessions.Delete(ctx, sess.Token); delErr != nil {
			b.logger.Warn("orphaned session cleanup failed", zap.String("phone", maskPhone(current.phone)), zap.Error(delErr))
		}
		return domain.Session{}, "", ErrNoChallenge
	}
	b.challenge = nil
	b.state = StateAuthenticated
	b.mu.Unlock()

	b.audit("session.login.success", "phone", maskPhone(current.phone), "route", string(route))
	return sess, route, nil
}

// ChangePhone discards any outstanding challenge and returns to phone entry.
// It always succeeds and touches neither the provider nor the store. The
// invalidation happens under the lock, so a verification already in flight
// can never consume the discarded handle.
func (b *Bootstrap) ChangePhone() {
	b.mu.Lock()
	b.challenge = nil
	b.state = StatePhoneEntry
	b.mu.Unlock()
}

// Logout removes the stored session.
func (b *Bootstrap) Logout(ctx context.Context, token string) error {
	return b.sessions.Delete(ctx, token)
}

// Resolve loads a stored session by bearer token.
func (b *Bootstrap) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := b.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(b.opts.Clock()) {
		return nil, nil
	}
	return sess, nil
}

func (b *Bootstrap) resolveRoute(ctx context.Context, phone string, cred identity.Credential) (Route, error) {
	raw, err := b.docs.Get(ctx, phone)
	if err != nil {
		if err != docstore.ErrNotFound {
			return "", fmt.Errorf("load member document: %w", err)
		}
		fields := map[string]any{
			"phoneNumber": phone,
			"createdAt":   b.opts.Clock().UTC(),
			"uid":         cred.UID,
		}
		if err := b.docs.Set(ctx, phone, fields, false); err != nil {
			return "", fmt.Errorf("create member document: %w", err)
		}
		return RouteCompleteProfile, nil
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return "", fmt.Errorf("decode member document: %w", err)
	}
	if profile.IsMember {
		return RouteDashboard, nil
	}
	return RouteCompleteProfile, nil
}

func (b *Bootstrap) createSession(ctx context.Context, phone string, cred identity.Credential) (domain.Session, error) {
	now := b.opts.Clock()
	expires := cred.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(b.opts.SessionTTL)
	}
	sess := domain.Session{
		ID:         b.node.Generate().Int64(),
		Token:      randomToken(32),
		Phone:      phone,
		UID:        cred.UID,
		Credential: cred.Token,
		CreatedAt:  now,
		ExpiresAt:  expires,
	}
	if err := b.sessions.Save(ctx, sess, expires.Sub(now)); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func (b *Bootstrap) allowResend(phone string) bool {
	if b.opts.ResendInterval <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	limiter, ok := b.resend[phone]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(b.opts.ResendInterval), 2)
		b.resend[phone] = limiter
	}
	return limiter.Allow()
}

func (b *Bootstrap) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if b == nil || b.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return b.tracer.Start(ctx, name)
}

func (b *Bootstrap) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", b.opts.Clock().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	b.logger.Info("audit", fields...)
}

func digitsOf(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func maskPhone(phone string) string {
	digits := digitsOf(phone)
	if len(digits) <= 4 {
		return "****"
	}
	return "******" + digits[len(digits)-4:]
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
