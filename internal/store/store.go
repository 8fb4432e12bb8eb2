package store

import (
	"context"
	"time"

	"vehiclepush/internal/parser"
)

// Notification is an accepted push as recorded in the history. Kind, Title
// and Text form the dedup key; Timestamp is informational only.
type Notification struct {
	Kind      parser.Kind `json:"kind"`
	Title     string      `json:"title"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store is the notification history. InsertIfNew must be an atomic
// check-and-insert: it persists n and returns true only when no record with
// the same dedup key exists.
type Store interface {
	InsertIfNew(ctx context.Context, n Notification) (bool, error)
	List(ctx context.Context, limit int) ([]Notification, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Pruner is implemented by backends that support age-based retention.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
