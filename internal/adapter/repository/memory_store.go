package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

// MemoryDatabase holds every relation behind one lock. It backs tests and the
// "memory" store driver; a single critical section gives the same atomicity
// as a database transaction.
type MemoryDatabase struct {
	mu       sync.RWMutex
	threads  map[string]entity.Thread
	messages map[string][]entity.Message // by thread, in insertion (= time) order
	bookings map[string]entity.Booking
	packages map[string]entity.Package
	profiles map[string]entity.Profile
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		threads:  make(map[string]entity.Thread),
		messages: make(map[string][]entity.Message),
		bookings: make(map[string]entity.Booking),
		packages: make(map[string]entity.Package),
		profiles: make(map[string]entity.Profile),
	}
}

// PutBooking seeds a booking owned by the booking service.
func (db *MemoryDatabase) PutBooking(b entity.Booking) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.bookings[b.ID] = b
}

func (db *MemoryDatabase) PutPackage(p entity.Package) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.packages[p.ID] = p
}

func (db *MemoryDatabase) PutProfile(p entity.Profile) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.profiles[p.ID] = p
}

// Messages returns a copy of a thread's messages in chronological order.
func (db *MemoryDatabase) Messages(threadID string) []entity.Message {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]entity.Message, len(db.messages[threadID]))
	copy(out, db.messages[threadID])
	return out
}

type memoryThreadRepository struct {
	db *MemoryDatabase
}

func NewMemoryThreadRepository(db *MemoryDatabase) repository.ThreadRepository {
	return &memoryThreadRepository{db: db}
}

func (r *memoryThreadRepository) Create(ctx context.Context, thread entity.Thread) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.threads[thread.ID]; exists {
		return repository.ErrConflict
	}
	for _, t := range r.db.threads {
		if t.CustomerID == thread.CustomerID && t.VendorID == thread.VendorID && sameBooking(t.BookingID, thread.BookingID) {
			return repository.ErrConflict
		}
	}
	r.db.threads[thread.ID] = thread
	return nil
}

func (r *memoryThreadRepository) GetByID(ctx context.Context, id string) (entity.Thread, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	thread, ok := r.db.threads[id]
	if !ok {
		return entity.Thread{}, repository.ErrNotFound
	}
	return thread, nil
}

func (r *memoryThreadRepository) FindByParticipants(ctx context.Context, customerID, vendorID string, bookingID *string) (entity.Thread, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, t := range r.db.threads {
		if t.CustomerID != customerID || t.VendorID != vendorID {
			continue
		}
		if sameBooking(t.BookingID, bookingID) {
			return t, nil
		}
	}
	return entity.Thread{}, repository.ErrNotFound
}

func sameBooking(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *memoryThreadRepository) ListByParticipant(ctx context.Context, who entity.Identity, limit, offset int) ([]entity.Thread, int64, error) {
	r.db.mu.RLock()
	var threads []entity.Thread
	for _, t := range r.db.threads {
		if t.IsParticipant(who) {
			threads = append(threads, t)
		}
	}
	r.db.mu.RUnlock()

	sortByActivity(threads)

	total := int64(len(threads))
	return pageOf(threads, limit, offset), total, nil
}

// sortByActivity orders threads newest activity first, ties by id, matching
// the Postgres ORDER BY so pages never overlap.
func sortByActivity(threads []entity.Thread) {
	sort.Slice(threads, func(i, j int) bool {
		a, b := activity(threads[i]), activity(threads[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return threads[i].ID < threads[j].ID
	})
}

func activity(t entity.Thread) time.Time {
	if t.LastMessageTime != nil {
		return *t.LastMessageTime
	}
	return t.CreatedAt
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type memoryMessageRepository struct {
	db *MemoryDatabase
}

func NewMemoryMessageRepository(db *MemoryDatabase) repository.MessageRepository {
	return &memoryMessageRepository{db: db}
}

func (r *memoryMessageRepository) ListByThread(ctx context.Context, q repository.MessageQuery) ([]entity.Message, int64, error) {
	r.db.mu.RLock()
	all := r.db.messages[q.ThreadID]
	total := int64(len(all))
	filtered := make([]entity.Message, 0, len(all))
	for _, m := range all {
		if q.Before != nil {
			if q.Sort == repository.SortAsc && !m.CreatedAt.After(*q.Before) {
				continue
			}
			if q.Sort != repository.SortAsc && !m.CreatedAt.Before(*q.Before) {
				continue
			}
		}
		filtered = append(filtered, m)
	}
	r.db.mu.RUnlock()

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Sort == repository.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if q.Sort == repository.SortAsc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	return pageOf(filtered, q.Limit, q.Offset), total, nil
}

type memoryUnreadLedger struct {
	db *MemoryDatabase
}

func NewMemoryUnreadLedger(db *MemoryDatabase) repository.UnreadLedger {
	return &memoryUnreadLedger{db: db}
}

func (l *memoryUnreadLedger) AppendMessage(ctx context.Context, msg entity.Message, preview string, now time.Time) (entity.Message, entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return entity.Message{}, entity.Thread{}, err
	}

	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	thread, ok := l.db.threads[msg.ThreadID]
	if !ok {
		return entity.Message{}, entity.Thread{}, repository.ErrNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Read = false
	msg.CreatedAt = thread.NextMessageTime(now)

	thread.LastMessage = preview
	ts := msg.CreatedAt
	thread.LastMessageTime = &ts
	thread.MessageCount++
	switch msg.SenderType.Counterpart() {
	case entity.RoleCustomer:
		thread.CustomerUnreadCount++
	case entity.RoleVendor:
		thread.VendorUnreadCount++
	}

	l.db.messages[msg.ThreadID] = append(l.db.messages[msg.ThreadID], msg)
	l.db.threads[thread.ID] = thread
	return msg, thread, nil
}

func (l *memoryUnreadLedger) Acknowledge(ctx context.Context, threadID string, reader entity.Role, messageIDs []string) (repository.ReadReceipt, error) {
	if err := ctx.Err(); err != nil {
		return repository.ReadReceipt{}, err
	}

	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	thread, ok := l.db.threads[threadID]
	if !ok {
		return repository.ReadReceipt{}, repository.ErrNotFound
	}

	var wanted map[string]struct{}
	if len(messageIDs) > 0 {
		wanted = make(map[string]struct{}, len(messageIDs))
		for _, id := range messageIDs {
			wanted[id] = struct{}{}
		}
	}

	counterpart := reader.Counterpart()
	msgs := l.db.messages[threadID]
	var receipt repository.ReadReceipt
	for i := range msgs {
		m := &msgs[i]
		if m.SenderType != counterpart || m.Read {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[m.ID]; !ok {
				receipt.UnreadCount++
				continue
			}
		}
		m.Read = true
		receipt.Marked++
	}

	switch reader {
	case entity.RoleCustomer:
		thread.CustomerUnreadCount = receipt.UnreadCount
	case entity.RoleVendor:
		thread.VendorUnreadCount = receipt.UnreadCount
	}
	l.db.threads[threadID] = thread
	return receipt, nil
}

type memoryBookingRepository struct {
	db *MemoryDatabase
}

func NewMemoryBookingRepository(db *MemoryDatabase) repository.BookingRepository {
	return &memoryBookingRepository{db: db}
}

func (r *memoryBookingRepository) GetByID(ctx context.Context, id string) (entity.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return entity.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (r *memoryBookingRepository) GetPackage(ctx context.Context, id string) (entity.Package, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.packages[id]
	if !ok {
		return entity.Package{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *memoryBookingRepository) Transition(ctx context.Context, bookingID string, t entity.BookingTransition) (entity.Booking, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[bookingID]
	if !ok {
		return entity.Booking{}, false, repository.ErrNotFound
	}
	if b.Status != t.From {
		return b, false, nil
	}
	b.Status = t.To
	if t.Notes != "" {
		b.ClientNotes = t.Notes
	}
	if t.Reason != "" {
		b.CancellationReason = t.Reason
	}
	b.UpdatedAt = t.At
	r.db.bookings[bookingID] = b
	return b, true, nil
}

type memoryUserRepository struct {
	db *MemoryDatabase
}

func NewMemoryUserRepository(db *MemoryDatabase) repository.UserRepository {
	return &memoryUserRepository{db: db}
}

func (r *memoryUserRepository) GetProfile(ctx context.Context, id string) (entity.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return entity.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *memoryUserRepository) GetProfiles(ctx context.Context, ids []string) (map[string]entity.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make(map[string]entity.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.db.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
