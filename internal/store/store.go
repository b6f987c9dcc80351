// Package store provides persistence for the conversation journal.
package store

import (
	"context"
	"time"

	"github.com/ashureev/portal-gateway/internal/domain"
)

// Journal defines the interface for persisting conversation events.
type Journal interface {
	// Record appends an event. ID and CreatedAt are filled in when empty.
	Record(ctx context.Context, ev *domain.MessageEvent) error

	// Recent returns up to limit of the latest events for phone, oldest first.
	Recent(ctx context.Context, phone string, limit int) ([]domain.MessageEvent, error)

	// Prune removes events older than retention and returns how many were deleted.
	Prune(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
