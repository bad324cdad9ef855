// Package storage is the boundary to the external document store. The
// engine hands over named blobs and keeps only the returned references.
package storage

import (
	"context"
	"fmt"
)

// Store accepts a named byte blob and returns a retrievable URL.
type Store interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// UnconfiguredStore rejects uploads. Wired in when no real document store
// is configured, so an application carrying documents fails loudly instead
// of silently dropping them.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Upload(_ context.Context, name string, _ []byte) (string, error) {
	return "", fmt.Errorf("document store is not configured, cannot upload %q", name)
}
