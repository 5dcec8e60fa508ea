package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	memstore "vendorchat/internal/adapter/repository"
	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(typ string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type denyLimiter struct{}

func (denyLimiter) Allow(string, string) (bool, time.Duration) { return false, time.Minute }

type fixture struct {
	db         *memstore.MemoryDatabase
	threadRepo repository.ThreadRepository
	chat       *ChatUseCase
	threads    *ThreadUseCase
	quotes     *QuoteUseCase
	pub        *recordingPublisher

	customer entity.Identity
	vendor   entity.Identity
	outsider entity.Identity
	thread   entity.Thread
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memstore.NewMemoryDatabase()
	threadRepo := memstore.NewMemoryThreadRepository(db)
	bookingRepo := memstore.NewMemoryBookingRepository(db)
	userRepo := memstore.NewMemoryUserRepository(db)
	pub := &recordingPublisher{}

	f := &fixture{
		db:         db,
		threadRepo: threadRepo,
		chat: NewChatUseCase(
			threadRepo,
			memstore.NewMemoryMessageRepository(db),
			memstore.NewMemoryUnreadLedger(db),
			userRepo,
			pub,
			nil,
		),
		threads:  NewThreadUseCase(threadRepo, bookingRepo, userRepo),
		quotes:   NewQuoteUseCase(threadRepo, bookingRepo, pub),
		pub:      pub,
		customer: entity.Identity{UserID: "cust-1", Role: entity.RoleCustomer},
		vendor:   entity.Identity{UserID: "vend-1", Role: entity.RoleVendor},
		outsider: entity.Identity{UserID: "cust-2", Role: entity.RoleCustomer},
	}

	db.PutProfile(entity.Profile{ID: "cust-1", Name: "Casey", AvatarURL: "https://cdn.example.com/casey.png"})
	db.PutProfile(entity.Profile{ID: "vend-1", Name: "Vera's Venues"})
	db.PutProfile(entity.Profile{ID: "cust-2", Name: "Olly"})

	f.thread = f.newThread(t, nil)
	return f
}

func (f *fixture) newThread(t *testing.T, bookingID *string) entity.Thread {
	t.Helper()
	thread, err := entity.NewThread(uuid.New().String(), f.customer.UserID, f.vendor.UserID, bookingID, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.threadRepo.Create(context.Background(), thread))
	return thread
}

func (f *fixture) send(t *testing.T, who entity.Identity, text string) *MessageView {
	t.Helper()
	view, err := f.chat.SendMessage(context.Background(), who, SendMessageInput{ThreadID: f.thread.ID, Content: &text})
	require.NoError(t, err)
	return view
}

func (f *fixture) stored(t *testing.T) entity.Thread {
	t.Helper()
	thread, err := f.threadRepo.GetByID(context.Background(), f.thread.ID)
	require.NoError(t, err)
	return thread
}

// requireCountersMatch checks both counters against the unread messages
// actually stored for the thread.
func (f *fixture) requireCountersMatch(t *testing.T) {
	t.Helper()
	var fromVendor, fromCustomer int
	for _, m := range f.db.Messages(f.thread.ID) {
		if m.Read {
			continue
		}
		if m.SenderType == entity.RoleVendor {
			fromVendor++
		} else {
			fromCustomer++
		}
	}
	thread := f.stored(t)
	require.Equal(t, fromVendor, thread.CustomerUnreadCount, "customer counter")
	require.Equal(t, fromCustomer, thread.VendorUnreadCount, "vendor counter")
}

func strPtr(s string) *string { return &s }
