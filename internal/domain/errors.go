package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrListingNotFound    = errors.New("listing not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrInvalidDateRange   = errors.New("check-in must be before check-out")
	ErrBookingConflict    = errors.New("listing is already booked for these dates")
	ErrDuplicateListing   = errors.New("duplicate listing at this address")
	ErrListingHasBookings = errors.New("listing has upcoming bookings")
	ErrForbidden          = errors.New("forbidden")
	ErrStore              = errors.New("store error")
)

// ConflictError names the listing and the requested interval that could not be booked.
type ConflictError struct {
	ListingID int64
	CheckIn   time.Time
	CheckOut  time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("listing %d is already booked between %s and %s",
		e.ListingID, e.CheckIn.Format(DateLayout), e.CheckOut.Format(DateLayout))
}

func (e *ConflictError) Unwrap() error { return ErrBookingConflict }

type DateRangeError struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s - %s: check-in must be before check-out",
		e.CheckIn.Format(DateLayout), e.CheckOut.Format(DateLayout))
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// InvalidArgument returns an error wrapping ErrInvalidArgument with a reason.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// StoreError classifies err as an unexpected store failure of op.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// IsDomain reports whether err is an expected, client-facing outcome.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrInvalidArgument, ErrListingNotFound, ErrBookingNotFound, ErrMessageNotFound,
		ErrInvalidDateRange, ErrBookingConflict, ErrDuplicateListing,
		ErrListingHasBookings, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
