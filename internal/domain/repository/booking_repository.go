package repository

import (
	"context"

	"vendorchat/internal/domain/entity"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (entity.Booking, error)
	GetPackage(ctx context.Context, id string) (entity.Package, error)
	// Transition applies t only if the booking is currently in t.From. It
	// reports whether the status changed and returns the booking as stored
	// afterwards.
	Transition(ctx context.Context, bookingID string, t entity.BookingTransition) (entity.Booking, bool, error)
}
