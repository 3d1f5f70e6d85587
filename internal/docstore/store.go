// Package docstore exposes the JSON document store holding member documents.
// The store owns persistence and change notification; this package only
// defines the capability the rest of the service consumes.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound signals the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ChangeFunc receives the full document after every remote mutation.
// Delivery is at-least-once and in store emission order.
type ChangeFunc func(doc []byte)

// ErrorFunc receives subscription errors.
type ErrorFunc func(err error)

// Unsubscribe releases a subscription. Safe to call more than once.
type Unsubscribe func()

// Store is a per-key JSON document store with change subscriptions.
type Store interface {
	// Get returns the raw document, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the given fields. With merge, existing top-level fields not
	// named in fields are preserved; otherwise the document is replaced.
	Set(ctx context.Context, key string, fields map[string]any, merge bool) error
	// Update merge-writes fields into an existing document, failing with
	// ErrNotFound when the document is absent.
	Update(ctx context.Context, key string, fields map[string]any) error
	// Subscribe delivers every subsequent change of the document until the
	// returned Unsubscribe is called.
	Subscribe(ctx context.Context, key string, onChange ChangeFunc, onError ErrorFunc) (Unsubscribe, error)
}
