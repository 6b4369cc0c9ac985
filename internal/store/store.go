// Package store persists published posts and their publication history.
package store

import (
	"context"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/post"
)

// Action names recorded in the history table.
const (
	ActionPublished   = "published"
	ActionUpdated     = "updated"
	ActionUnpublished = "unpublished"
	ActionImported    = "imported"
)

// HistoryEntry is one publication event for an issue.
type HistoryEntry struct {
	ID          int64
	Number      int
	Action      string
	Fingerprint string
	At          time.Time
}

// Store defines the interface for persisting and retrieving posts.
type Store interface {
	// Upsert inserts or replaces the post keyed by issue number.
	Upsert(ctx context.Context, p *post.Post) error

	// Get returns the post for an issue number, or ErrNotFound.
	Get(ctx context.Context, number int) (*post.Post, error)

	// GetBySlug returns the first post with the slug, or ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (*post.Post, error)

	// List returns all posts, newest first.
	List(ctx context.Context) ([]*post.Post, error)

	// Delete removes the post for an issue number. Missing posts are not an error.
	Delete(ctx context.Context, number int) (bool, error)

	// Record appends a history entry.
	Record(ctx context.Context, number int, action, fingerprint string) error

	// History returns the entries for an issue in insertion order.
	History(ctx context.Context, number int) ([]HistoryEntry, error)

	// Close closes the store and releases resources.
	Close() error
}
