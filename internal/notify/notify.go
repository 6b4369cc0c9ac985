// Package notify announces publication changes to other systems.
package notify

import (
	"context"
	"time"
)

// EventType names what happened to a post.
type EventType string

const (
	EventPublished   EventType = "published"
	EventUpdated     EventType = "updated"
	EventUnpublished EventType = "unpublished"
)

// Event describes a change to one post.
type Event struct {
	Type        EventType `json:"type"`
	Number      int       `json:"number"`
	UID         string    `json:"uid,omitempty"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notifier delivers events. Failures are reported but never undo a publish.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
func (Noop) Close() error                        { return nil }
