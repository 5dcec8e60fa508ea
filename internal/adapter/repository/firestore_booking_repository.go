package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

type firestoreBookingRepository struct {
	client *firestore.Client
}

func NewFirestoreBookingRepository(client *firestore.Client) repository.BookingRepository {
	return &firestoreBookingRepository{client: client}
}

func bookingFromSnapshot(doc *firestore.DocumentSnapshot) (entity.Booking, error) {
	var b entity.Booking
	if err := doc.DataTo(&b); err != nil {
		return entity.Booking{}, fmt.Errorf("parse booking %s: %w", doc.Ref.ID, err)
	}
	b.ID = doc.Ref.ID
	return b, nil
}

func (r *firestoreBookingRepository) GetByID(ctx context.Context, id string) (entity.Booking, error) {
	doc, err := r.client.Collection("bookings").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Booking{}, repository.ErrNotFound
		}
		return entity.Booking{}, err
	}
	return bookingFromSnapshot(doc)
}

func (r *firestoreBookingRepository) GetPackage(ctx context.Context, id string) (entity.Package, error) {
	doc, err := r.client.Collection("packages").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Package{}, repository.ErrNotFound
		}
		return entity.Package{}, err
	}

	var p entity.Package
	if err := doc.DataTo(&p); err != nil {
		return entity.Package{}, fmt.Errorf("parse package %s: %w", id, err)
	}
	p.ID = doc.Ref.ID
	return p, nil
}

func (r *firestoreBookingRepository) Transition(ctx context.Context, bookingID string, t entity.BookingTransition) (entity.Booking, bool, error) {
	ref := r.client.Collection("bookings").Doc(bookingID)

	var (
		result  entity.Booking
		changed bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrNotFound
			}
			return err
		}
		b, err := bookingFromSnapshot(doc)
		if err != nil {
			return err
		}
		if b.Status != t.From {
			result, changed = b, false
			return nil
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(t.To)},
			{Path: "updatedAt", Value: t.At},
		}
		b.Status = t.To
		b.UpdatedAt = t.At
		if t.Notes != "" {
			updates = append(updates, firestore.Update{Path: "clientNotes", Value: t.Notes})
			b.ClientNotes = t.Notes
		}
		if t.Reason != "" {
			updates = append(updates, firestore.Update{Path: "cancellationReason", Value: t.Reason})
			b.CancellationReason = t.Reason
		}
		if err := tx.Update(ref, updates); err != nil {
			return err
		}
		result, changed = b, true
		return nil
	})
	if err != nil {
		return entity.Booking{}, false, err
	}
	return result, changed, nil
}
