package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

const defaultQuoteTitle = "Booking quote"

// ConfirmedNextSteps is returned after a quote is accepted.
var ConfirmedNextSteps = []string{
	"The vendor has been notified that you accepted the quote",
	"Complete the deposit from your bookings page to secure the date",
	"Use this thread to finalise event details with the vendor",
}

// QuoteUseCase exposes a thread's linked booking as a quote the customer can
// accept or reject. It changes booking state only.
type QuoteUseCase struct {
	guard       *AccessGuard
	threadRepo  repository.ThreadRepository
	bookingRepo repository.BookingRepository
	publisher   Publisher
	now         func() time.Time
}

func NewQuoteUseCase(
	threadRepo repository.ThreadRepository,
	bookingRepo repository.BookingRepository,
	publisher Publisher,
) *QuoteUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &QuoteUseCase{
		guard:       NewAccessGuard(threadRepo),
		threadRepo:  threadRepo,
		bookingRepo: bookingRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

type Quote struct {
	BookingID   string               `json:"bookingId"`
	VendorID    string               `json:"vendorId"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Price       float64              `json:"price"`
	Currency    string               `json:"currency"`
	Status      entity.BookingStatus `json:"status"`
	EventDate   *time.Time           `json:"eventDate,omitempty"`
	GuestCount  int                  `json:"guestCount"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type QuoteResult struct {
	Quote          *Quote `json:"quote"`
	HasActiveQuote bool   `json:"hasActiveQuote"`
}

// QuoteDecision acknowledges accept/reject. Transitioned is false when the
// booking had already left pending.
type QuoteDecision struct {
	BookingID    string               `json:"bookingId"`
	Status       entity.BookingStatus `json:"status"`
	Transitioned bool                 `json:"transitioned"`
	Message      string               `json:"message"`
	NextSteps    []string             `json:"nextSteps,omitempty"`
}

// GetQuote is available to the thread's customer only. A thread without a
// booking yields a nil quote.
func (uc *QuoteUseCase) GetQuote(ctx context.Context, who entity.Identity, threadID string) (*QuoteResult, error) {
	thread, err := uc.guard.AuthorizeCustomer(ctx, threadID, who)
	if err != nil {
		return nil, err
	}
	if thread.BookingID == nil {
		return &QuoteResult{}, nil
	}

	booking, err := uc.bookingRepo.GetByID(ctx, *thread.BookingID)
	if stderrors.Is(err, repository.ErrNotFound) {
		logger.Warn("GetQuote: thread %s links missing booking %s", thread.ID, *thread.BookingID)
		return &QuoteResult{}, nil
	}
	if err != nil {
		return nil, storeError("GetQuote", err, "Booking")
	}

	quote := uc.quoteOf(ctx, booking)
	return &QuoteResult{
		Quote:          quote,
		HasActiveQuote: quote.Status == entity.BookingPending,
	}, nil
}

func (uc *QuoteUseCase) quoteOf(ctx context.Context, b entity.Booking) *Quote {
	q := &Quote{
		BookingID:  b.ID,
		VendorID:   b.VendorID,
		Title:      defaultQuoteTitle,
		Price:      b.TotalPrice,
		Currency:   b.Currency,
		Status:     b.Status,
		EventDate:  b.EventDate,
		GuestCount: b.GuestCount,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.PackageID == nil {
		return q
	}
	pkg, err := uc.bookingRepo.GetPackage(ctx, *b.PackageID)
	if err != nil {
		logger.Warn("GetQuote: package %s of booking %s: %v", *b.PackageID, b.ID, err)
		return q
	}
	q.Title = pkg.Title
	q.Description = pkg.Description
	if q.Price == 0 {
		q.Price = pkg.Price
	}
	if q.Currency == "" {
		q.Currency = pkg.Currency
	}
	return q
}

type AcceptQuoteInput struct {
	ThreadID    string
	AcceptTerms bool
	Notes       string
}

func (uc *QuoteUseCase) AcceptQuote(ctx context.Context, who entity.Identity, input AcceptQuoteInput) (*QuoteDecision, error) {
	if !input.AcceptTerms {
		return nil, errors.BadRequest("You must accept the terms to confirm the quote", nil)
	}
	return uc.decide(ctx, who, input.ThreadID, entity.BookingTransition{
		From:  entity.BookingPending,
		To:    entity.BookingConfirmed,
		Notes: strings.TrimSpace(input.Notes),
	}, "AcceptQuote")
}

type RejectQuoteInput struct {
	ThreadID string
	Reason   string
}

func (uc *QuoteUseCase) RejectQuote(ctx context.Context, who entity.Identity, input RejectQuoteInput) (*QuoteDecision, error) {
	return uc.decide(ctx, who, input.ThreadID, entity.BookingTransition{
		From:   entity.BookingPending,
		To:     entity.BookingCancelled,
		Reason: strings.TrimSpace(input.Reason),
	}, "RejectQuote")
}

// decide applies t to the thread's booking when the caller owns it. Thread
// participation is not checked; booking ownership is the gate. A missing
// thread, a thread without a booking and a foreign booking all answer
// "Thread not found".
func (uc *QuoteUseCase) decide(ctx context.Context, who entity.Identity, threadID string, t entity.BookingTransition, op string) (*QuoteDecision, error) {
	if who.UserID == "" || !who.Role.Valid() {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	if err := validThreadID(threadID); err != nil {
		return nil, err
	}

	thread, err := uc.threadRepo.GetByID(ctx, threadID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFound("Thread", ErrThreadNotFound)
	}
	if err != nil {
		return nil, storeError(op, err, "Thread")
	}
	if thread.BookingID == nil {
		return nil, errors.NotFound("Thread", ErrNoBooking)
	}

	booking, err := uc.bookingRepo.GetByID(ctx, *thread.BookingID)
	if err != nil {
		return nil, storeError(op, err, "Thread")
	}
	if booking.ClientID != who.UserID {
		logger.Warn("%s: user %s does not own booking %s", op, who.UserID, booking.ID)
		return nil, errors.NotFound("Thread", ErrNotBookingOwner)
	}

	t.At = uc.now().UTC()
	booking, changed, err := uc.bookingRepo.Transition(ctx, booking.ID, t)
	if err != nil {
		return nil, storeError(op, err, "Quote")
	}

	decision := &QuoteDecision{
		BookingID:    booking.ID,
		Status:       booking.Status,
		Transitioned: changed,
	}
	switch {
	case !changed:
		decision.Message = "Quote is already " + string(booking.Status)
	case booking.Status == entity.BookingConfirmed:
		decision.Message = "Quote accepted"
	default:
		decision.Message = "Quote rejected"
	}
	if booking.Status == entity.BookingConfirmed {
		decision.NextSteps = ConfirmedNextSteps
	}

	if changed {
		logger.Info("%s: booking %s %s -> %s by %s", op, booking.ID, t.From, booking.Status, who.UserID)
		deliver(ctx, uc.publisher, Event{
			Type:       EventQuoteUpdated,
			ThreadID:   thread.ID,
			Recipients: []string{thread.CustomerID, thread.VendorID},
			Payload:    decision,
			At:         t.At,
		})
	}
	return decision, nil
}
