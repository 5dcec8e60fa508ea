package usecase

import (
	"context"
	"time"

	"vendorchat/internal/domain/entity"
)

// Event types pushed to connected clients.
const (
	EventMessageCreated = "message.created"
	EventThreadRead     = "thread.read"
	EventQuoteUpdated   = "quote.updated"
)

// Event is a notification about a thread, delivered to Recipients.
type Event struct {
	Type       string    `json:"type"`
	ThreadID   string    `json:"threadId"`
	Recipients []string  `json:"recipients"`
	Payload    any       `json:"payload"`
	At         time.Time `json:"at"`
}

// Publisher delivers events to connected clients. Delivery is best effort;
// clients that miss an event catch up by polling.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RateLimiter throttles an action per user.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (entity.Identity, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

type unlimited struct{}

func (unlimited) Allow(string, string) (bool, time.Duration) { return true, 0 }
