package session

import (
	"context"
	"time"

	"github.com/ebasak22/Fitness/internal/domain"
)

// Store persists issued sessions keyed by bearer token.
type Store interface {
	Save(ctx context.Context, sess domain.Session, ttl time.Duration) error
	// Get returns nil without error when the token is unknown or lapsed.
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
