package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

type ThreadUseCase struct {
	guard       *AccessGuard
	threadRepo  repository.ThreadRepository
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

func NewThreadUseCase(
	threadRepo repository.ThreadRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
) *ThreadUseCase {
	return &ThreadUseCase{
		guard:       NewAccessGuard(threadRepo),
		threadRepo:  threadRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// ListThreads returns the caller's threads, most recent activity first.
func (uc *ThreadUseCase) ListThreads(ctx context.Context, who entity.Identity, limit, offset int) ([]ThreadView, int64, error) {
	if who.UserID == "" || !who.Role.Valid() {
		return nil, 0, errors.Unauthorized("Authentication required", nil)
	}

	threads, total, err := uc.threadRepo.ListByParticipant(ctx, who, limit, offset)
	if err != nil {
		return nil, 0, storeError("ListThreads", err, "Thread")
	}

	ids := make([]string, 0, len(threads)*2)
	for _, t := range threads {
		ids = append(ids, t.CustomerID, t.VendorID)
	}
	ps := loadProfiles(ctx, uc.userRepo, ids...)

	views := make([]ThreadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, newThreadView(t, who, ps))
	}
	return views, total, nil
}

func (uc *ThreadUseCase) GetThread(ctx context.Context, who entity.Identity, threadID string) (*ThreadView, error) {
	thread, err := uc.guard.Authorize(ctx, threadID, who)
	if err != nil {
		return nil, err
	}
	ps := loadProfiles(ctx, uc.userRepo, thread.CustomerID, thread.VendorID)
	view := newThreadView(thread, who, ps)
	return &view, nil
}

type OpenThreadInput struct {
	CounterpartID string
	BookingID     *string
}

// OpenThread returns the thread between the caller and CounterpartID for
// the booking, creating it on first use. The bool reports creation.
func (uc *ThreadUseCase) OpenThread(ctx context.Context, who entity.Identity, input OpenThreadInput) (*ThreadView, bool, error) {
	if who.UserID == "" || !who.Role.Valid() {
		return nil, false, errors.Unauthorized("Authentication required", nil)
	}

	counterpartID := strings.TrimSpace(input.CounterpartID)
	if counterpartID == "" {
		return nil, false, errors.BadRequest("counterpartId is required", nil)
	}
	if counterpartID == who.UserID {
		return nil, false, errors.BadRequest("You cannot open a thread with yourself", nil)
	}

	customerID, vendorID := who.UserID, counterpartID
	if who.Role == entity.RoleVendor {
		customerID, vendorID = counterpartID, who.UserID
	}

	bookingID := input.BookingID
	if bookingID != nil && strings.TrimSpace(*bookingID) == "" {
		bookingID = nil
	}
	if bookingID != nil {
		booking, err := uc.bookingRepo.GetByID(ctx, *bookingID)
		if err != nil {
			return nil, false, storeError("OpenThread", err, "Booking")
		}
		if booking.ClientID != customerID || booking.VendorID != vendorID {
			logger.Warn("OpenThread: booking %s does not belong to %s/%s", booking.ID, customerID, vendorID)
			return nil, false, errors.NotFound("Booking", ErrNotBookingOwner)
		}
	}

	if _, err := uc.userRepo.GetProfile(ctx, counterpartID); err != nil {
		return nil, false, storeError("OpenThread", err, "User")
	}

	thread, err := uc.threadRepo.FindByParticipants(ctx, customerID, vendorID, bookingID)
	created := false
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrNotFound):
		thread, err = entity.NewThread(threadID(customerID, vendorID, bookingID), customerID, vendorID, bookingID, uc.now())
		if err != nil {
			return nil, false, errors.BadRequest(err.Error(), err)
		}
		err = uc.threadRepo.Create(ctx, thread)
		if stderrors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent open of the same pair.
			thread, err = uc.threadRepo.FindByParticipants(ctx, customerID, vendorID, bookingID)
		} else if err == nil {
			created = true
			logger.Info("Thread %s opened between customer %s and vendor %s", thread.ID, customerID, vendorID)
		}
		if err != nil {
			return nil, false, storeError("OpenThread", err, "Thread")
		}
	default:
		return nil, false, storeError("OpenThread", err, "Thread")
	}

	ps := loadProfiles(ctx, uc.userRepo, customerID, vendorID)
	view := newThreadView(thread, who, ps)
	return &view, created, nil
}

// threadNamespace seeds name-based thread ids.
var threadNamespace = uuid.MustParse("5b7c1d0e-3f5a-4c8e-9a51-2d6f0b8e4c17")

// threadID is stable for a (customer, vendor, booking) triple, so two
// concurrent opens of the same pair collide on the id even in stores
// without a unique index.
func threadID(customerID, vendorID string, bookingID *string) string {
	name := customerID + "\x00" + vendorID
	if bookingID != nil {
		name += "\x00" + *bookingID
	}
	return uuid.NewSHA1(threadNamespace, []byte(name)).String()
}

// Counterpart returns the other participant's user id, for relaying typing
// indicators.
func (uc *ThreadUseCase) Counterpart(ctx context.Context, who entity.Identity, threadID string) (string, error) {
	thread, err := uc.guard.Authorize(ctx, threadID, who)
	if err != nil {
		return "", err
	}
	return thread.ParticipantID(who.Role.Counterpart()), nil
}
