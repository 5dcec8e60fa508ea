package repository

import (
	"context"
	"errors"
	"time"

	"vendorchat/internal/domain/entity"
)

var (
	// ErrNotFound is returned by every store when a row/document is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating a row whose key already exists.
	ErrConflict = errors.New("already exists")
)

type ThreadRepository interface {
	Create(ctx context.Context, thread entity.Thread) error
	GetByID(ctx context.Context, id string) (entity.Thread, error)
	// FindByParticipants returns the thread for the pair and booking (nil
	// booking matches threads without one).
	FindByParticipants(ctx context.Context, customerID, vendorID string, bookingID *string) (entity.Thread, error)
	ListByParticipant(ctx context.Context, who entity.Identity, limit, offset int) ([]entity.Thread, int64, error)
}

// SortOrder of message history.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// MessageQuery is a normalized page request. Before applies in the scroll
// direction implied by Sort: older-than for desc, newer-than for asc.
type MessageQuery struct {
	ThreadID string
	Limit    int
	Offset   int
	Before   *time.Time
	Sort     SortOrder
}

type MessageRepository interface {
	// ListByThread returns one page and the thread's total message count.
	ListByThread(ctx context.Context, q MessageQuery) ([]entity.Message, int64, error)
}

// ReadReceipt is the outcome of acknowledging messages.
type ReadReceipt struct {
	Marked      int
	UnreadCount int
}

// UnreadLedger performs the two mutations that touch unread counters. Each
// call is a single atomic unit in the backing store.
type UnreadLedger interface {
	// AppendMessage inserts msg, assigns its CreatedAt, refreshes the thread
	// summary with preview and increments the counterpart's counter by one.
	AppendMessage(ctx context.Context, msg entity.Message, preview string, now time.Time) (entity.Message, entity.Thread, error)
	// Acknowledge flips unread counterpart messages to read (all of them when
	// messageIDs is empty) and sets the reader's counter to the number of
	// counterpart messages still unread.
	Acknowledge(ctx context.Context, threadID string, reader entity.Role, messageIDs []string) (ReadReceipt, error)
}
