package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidNumber signals the provider rejected the phone number.
	ErrInvalidNumber = errors.New("identity: invalid phone number")
	// ErrRateLimited signals the provider throttled challenge issuance.
	ErrRateLimited = errors.New("identity: rate limited")
	// ErrNetwork signals the provider was unreachable.
	ErrNetwork = errors.New("identity: network error")
	// ErrWrongCode signals the submitted OTP did not match.
	ErrWrongCode = errors.New("identity: wrong code")
	// ErrExpired signals the challenge lapsed before verification.
	ErrExpired = errors.New("identity: challenge expired")
)

// Credential is the opaque proof of identity returned after a successful
// OTP verification.
type Credential struct {
	UID       string
	Phone     string
	Token     string
	ExpiresAt time.Time
}

// Confirmation is the handle issued alongside an OTP challenge. It is
// required to verify the code the user submits and is good for one attempt
// sequence only.
type Confirmation interface {
	Verify(ctx context.Context, code string) (Credential, error)
}

// Provider issues and verifies phone OTP challenges.
type Provider interface {
	SendChallenge(ctx context.Context, phone string) (Confirmation, error)
}
