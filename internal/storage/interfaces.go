package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
)

// ErrStateNotFound is returned by StateStore.Load when no snapshot was saved yet.
var ErrStateNotFound = errors.New("pool state not found")

// StateStore persists pool snapshots
type StateStore interface {
	// Load returns the latest snapshot and its version
	Load(ctx context.Context) (*amm.State, uint64, error)

	// Save stores a snapshot and returns the new version
	Save(ctx context.Context, state *amm.State) (uint64, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// EventCache keeps a bounded list of the latest pool events
type EventCache interface {
	// AddRecentEvent pushes an event onto the recent events list
	AddRecentEvent(ctx context.Context, event *models.PoolEvent) error

	// GetRecentEvents returns up to limit events, newest first
	GetRecentEvents(ctx context.Context, limit int64) ([]*models.PoolEvent, error)
}

// EventPublisher fans events out to live subscribers
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.PoolEvent) error
}

// EventSubscriber streams live events until ctx is cancelled
type EventSubscriber interface {
	SubscribeEvents(ctx context.Context) (<-chan *models.PoolEvent, error)
}

// EventStore is the append-only event ledger
type EventStore interface {
	// InsertEvent appends an event to the ledger
	InsertEvent(ctx context.Context, event *models.PoolEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}
