package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

const bookingColumns = `id, client_id, vendor_id, package_id, status, event_date, guest_count,
	total_price::float8, currency, client_notes, cancellation_reason, created_at, updated_at`

type postgresBookingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBookingRepository(pool *pgxpool.Pool) repository.BookingRepository {
	return &postgresBookingRepository{pool: pool}
}

func scanBooking(row rowScanner) (entity.Booking, error) {
	var (
		b      entity.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.ClientID, &b.VendorID, &b.PackageID, &status, &b.EventDate, &b.GuestCount,
		&b.TotalPrice, &b.Currency, &b.ClientNotes, &b.CancellationReason, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Booking{}, repository.ErrNotFound
	}
	if err != nil {
		return entity.Booking{}, err
	}
	b.Status = entity.BookingStatus(status)
	return b, nil
}

func (r *postgresBookingRepository) GetByID(ctx context.Context, id string) (entity.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (r *postgresBookingRepository) GetPackage(ctx context.Context, id string) (entity.Package, error) {
	var p entity.Package
	err := r.pool.QueryRow(ctx, `
		SELECT id, vendor_id, title, description, price::float8, currency FROM packages WHERE id = $1
	`, id).Scan(&p.ID, &p.VendorID, &p.Title, &p.Description, &p.Price, &p.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Package{}, repository.ErrNotFound
	}
	return p, err
}

// Transition is a single compare-and-set UPDATE; a booking that already left
// t.From is returned unchanged.
func (r *postgresBookingRepository) Transition(ctx context.Context, bookingID string, t entity.BookingTransition) (entity.Booking, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			status = $3,
			client_notes = CASE WHEN $4::text <> '' THEN $4::text ELSE client_notes END,
			cancellation_reason = CASE WHEN $5::text <> '' THEN $5::text ELSE cancellation_reason END,
			updated_at = $6
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns,
		bookingID, string(t.From), string(t.To), t.Notes, t.Reason, t.At)

	b, err := scanBooking(row)
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return entity.Booking{}, false, err
	}

	current, err := r.GetByID(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, false, err
	}
	return current, false, nil
}
