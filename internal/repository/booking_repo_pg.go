package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
	"github.com/jackc/pgx/v5"
)

// BookingSchema declares the booking fields accepted by partial updates.
var BookingSchema = sqlbuilder.MustSchema("bookings", sqlbuilder.Columns{
	"bookingId":   {Name: "booking_id", ReadOnly: true},
	"listingId":   {Name: "listing_id", ReadOnly: true},
	"bookingUser": {Name: "booking_user"},
	"checkIn":     {Name: "check_in"},
	"checkOut":    {Name: "check_out"},
	"status":      {Name: "status", ReadOnly: true},
})

const bookingColumns = `booking_id, listing_id, booking_user, check_in, check_out, status, created_at, updated_at`

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// FindOverlapping returns the confirmed bookings of the listing whose
	// interval intersects [checkIn, checkOut), ignoring excludeID.
	FindOverlapping(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) ([]domain.Booking, error)
	// CreateConfirmed inserts the booking if the listing exists and the interval is free.
	CreateConfirmed(ctx context.Context, booking *domain.Booking) error
	// Update applies a partial update, re-checking availability when dates change.
	Update(ctx context.Context, id int64, fields sqlbuilder.Fields) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	ListByUser(ctx context.Context, username string) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
		}
		return nil, domain.StoreError("get booking", err)
	}
	return b, nil
}

func (r *PGBookingRepository) FindOverlapping(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) ([]domain.Booking, error) {
	bookings, err := findOverlapping(ctx, r.db, listingID, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, domain.StoreError("find overlapping bookings", err)
	}
	return bookings, nil
}

func (r *PGBookingRepository) CreateConfirmed(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusConfirmed

	err := inSerializableTx(ctx, r.db, "create booking", func(tx pgx.Tx) error {
		var listingID int64
		if err := tx.QueryRow(ctx, `SELECT listing_id FROM listings WHERE listing_id=$1 FOR SHARE`, booking.ListingID).Scan(&listingID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %d", domain.ErrListingNotFound, booking.ListingID)
			}
			return err
		}

		existing, err := findOverlapping(ctx, tx, booking.ListingID, booking.CheckIn, booking.CheckOut, 0)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return conflict(booking.ListingID, booking.CheckIn, booking.CheckOut)
		}

		return tx.QueryRow(ctx, `INSERT INTO bookings (listing_id, booking_user, check_in, check_out, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING booking_id, created_at, updated_at`,
			booking.ListingID, booking.BookingUser, booking.CheckIn, booking.CheckOut, booking.Status).
			Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	})
	return classifyBookingWrite("create booking", err, booking.ListingID, booking.CheckIn, booking.CheckOut)
}

func (r *PGBookingRepository) Update(ctx context.Context, id int64, fields sqlbuilder.Fields) (*domain.Booking, error) {
	clause, err := BookingSchema.PartialUpdate(fields)
	if err != nil {
		return nil, err
	}

	var (
		updated           *domain.Booking
		listingID         int64
		checkIn, checkOut time.Time
	)
	err = inSerializableTx(ctx, r.db, "update booking", func(tx pgx.Tx) error {
		current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
			}
			return err
		}

		listingID = current.ListingID
		checkIn, checkOut, err = MergeInterval(current, fields)
		if err != nil {
			return err
		}
		if TouchesDates(fields) && current.Active() {
			existing, err := findOverlapping(ctx, tx, current.ListingID, checkIn, checkOut, id)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return conflict(current.ListingID, checkIn, checkOut)
			}
		}

		query := fmt.Sprintf(`UPDATE bookings SET %s, updated_at=now() WHERE booking_id=%s RETURNING %s`,
			clause.SQL, sqlbuilder.Placeholder(clause.Next()), bookingColumns)
		updated, err = scanBooking(tx.QueryRow(ctx, query, append(clause.Args, id)...))
		return err
	})
	if err := classifyBookingWrite("update booking", err, listingID, checkIn, checkOut); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE booking_id=$2 RETURNING `+bookingColumns, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
		}
		if isWriteConflict(err) {
			return nil, domain.ErrBookingConflict
		}
		return nil, domain.StoreError("update booking status", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, username string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_user=$1 ORDER BY check_in, booking_id`, username)
	if err != nil {
		return nil, domain.StoreError("list bookings", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, domain.StoreError("list bookings", err)
	}
	return bookings, nil
}

// TouchesDates reports whether a booking patch changes the check-in or check-out date.
func TouchesDates(fields sqlbuilder.Fields) bool {
	_, in := fields["checkIn"]
	_, out := fields["checkOut"]
	return in || out
}

// MergeInterval returns the interval the booking would have after applying fields.
func MergeInterval(current *domain.Booking, fields sqlbuilder.Fields) (time.Time, time.Time, error) {
	checkIn, checkOut := current.CheckIn, current.CheckOut
	if v, ok := fields["checkIn"]; ok {
		t, ok := v.(time.Time)
		if !ok {
			return time.Time{}, time.Time{}, domain.InvalidArgument("checkIn must be a date")
		}
		checkIn = domain.Day(t)
	}
	if v, ok := fields["checkOut"]; ok {
		t, ok := v.(time.Time)
		if !ok {
			return time.Time{}, time.Time{}, domain.InvalidArgument("checkOut must be a date")
		}
		checkOut = domain.Day(t)
	}
	if !checkIn.Before(checkOut) {
		return time.Time{}, time.Time{}, &domain.DateRangeError{CheckIn: checkIn, CheckOut: checkOut}
	}
	return checkIn, checkOut, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func findOverlapping(ctx context.Context, q querier, listingID int64, checkIn, checkOut time.Time, excludeID int64) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE listing_id=$1 AND status=$2 AND check_in < $4 AND check_out > $3 AND booking_id <> $5
		ORDER BY check_in`,
		listingID, domain.BookingStatusConfirmed, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row scanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.ListingID, &b.BookingUser, &b.CheckIn, &b.CheckOut, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.CheckIn = domain.Day(b.CheckIn)
	b.CheckOut = domain.Day(b.CheckOut)
	return &b, nil
}

func conflict(listingID int64, checkIn, checkOut time.Time) error {
	return &domain.ConflictError{ListingID: listingID, CheckIn: checkIn, CheckOut: checkOut}
}

// classifyBookingWrite maps store failures of a booking write onto the domain taxonomy.
// Losing a concurrent write is always reported as a booking conflict.
func classifyBookingWrite(op string, err error, listingID int64, checkIn, checkOut time.Time) error {
	switch {
	case err == nil:
		return nil
	case domain.IsDomain(err):
		return err
	case isWriteConflict(err):
		return conflict(listingID, checkIn, checkOut)
	case isViolation(err, codeForeignKeyViolation, ""):
		return fmt.Errorf("%w: %d", domain.ErrListingNotFound, listingID)
	case isViolation(err, codeCheckViolation, constraintBookingDates):
		return &domain.DateRangeError{CheckIn: checkIn, CheckOut: checkOut}
	}
	return domain.StoreError(op, err)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
