package repositories

import (
	"context"
)

// Store is the lifecycle of the storage engine behind the repositories.
type Store interface {
	// Ping verifies the storage engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections or file handles.
	Close() error
}
