package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestMergeInterval(t *testing.T) {
	current := &domain.Booking{ListingID: 1, CheckIn: date("2024-06-01"), CheckOut: date("2024-06-10")}

	in, out, err := MergeInterval(current, sqlbuilder.Fields{"checkOut": date("2024-06-12")})
	require.NoError(t, err)
	assert.Equal(t, date("2024-06-01"), in)
	assert.Equal(t, date("2024-06-12"), out)

	in, out, err = MergeInterval(current, sqlbuilder.Fields{"bookingUser": "guest2"})
	require.NoError(t, err)
	assert.Equal(t, current.CheckIn, in)
	assert.Equal(t, current.CheckOut, out)

	_, _, err = MergeInterval(current, sqlbuilder.Fields{"checkIn": date("2024-06-10")})
	assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))

	_, _, err = MergeInterval(current, sqlbuilder.Fields{"checkIn": "2024-06-02"})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestTouchesDates(t *testing.T) {
	assert.True(t, TouchesDates(sqlbuilder.Fields{"checkIn": date("2024-06-01")}))
	assert.True(t, TouchesDates(sqlbuilder.Fields{"checkOut": date("2024-06-01"), "bookingUser": "x"}))
	assert.False(t, TouchesDates(sqlbuilder.Fields{"bookingUser": "x"}))
}

func TestClassifyBookingWrite(t *testing.T) {
	in, out := date("2024-06-05"), date("2024-06-12")

	testCases := []struct {
		name   string
		err    error
		target error
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: codeSerializationFailure}, target: domain.ErrBookingConflict},
		{name: "exclusion violation", err: &pgconn.PgError{Code: codeExclusionViolation, ConstraintName: "bookings_no_overlap"}, target: domain.ErrBookingConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: codeDeadlockDetected}, target: domain.ErrBookingConflict},
		{name: "missing listing", err: &pgconn.PgError{Code: codeForeignKeyViolation}, target: domain.ErrListingNotFound},
		{name: "bad dates", err: &pgconn.PgError{Code: codeCheckViolation, ConstraintName: constraintBookingDates}, target: domain.ErrInvalidDateRange},
		{name: "domain error passes through", err: domain.ErrBookingNotFound, target: domain.ErrBookingNotFound},
		{name: "anything else", err: errors.New("connection reset"), target: domain.ErrStore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyBookingWrite("create booking", tc.err, 7, in, out)
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
		})
	}

	assert.NoError(t, classifyBookingWrite("create booking", nil, 7, in, out))

	var conflictErr *domain.ConflictError
	require.True(t, errors.As(classifyBookingWrite("create booking", &pgconn.PgError{Code: codeSerializationFailure}, 7, in, out), &conflictErr))
	assert.Equal(t, int64(7), conflictErr.ListingID)
	assert.Equal(t, in, conflictErr.CheckIn)
	assert.Equal(t, out, conflictErr.CheckOut)
}

func TestBookingSchema_RejectsReadOnlyFields(t *testing.T) {
	for _, field := range []string{"bookingId", "listingId", "status"} {
		_, err := BookingSchema.PartialUpdate(sqlbuilder.Fields{field: 1})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), field)
	}

	clause, err := BookingSchema.PartialUpdate(sqlbuilder.Fields{"checkIn": date("2024-06-01"), "checkOut": date("2024-06-03")})
	require.NoError(t, err)
	assert.Equal(t, `"check_in"=$1, "check_out"=$2`, clause.SQL)
}

func TestRetrySerialization(t *testing.T) {
	serialization := &pgconn.PgError{Code: codeSerializationFailure}

	testCases := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{name: "success first time", results: []error{nil}, wantCalls: 1},
		{name: "serialization failure retried", results: []error{serialization, nil}, wantCalls: 2},
		{name: "deadlock retried", results: []error{&pgconn.PgError{Code: codeDeadlockDetected}, nil}, wantCalls: 2},
		{name: "retried only once", results: []error{serialization, serialization, nil}, wantCalls: 2, wantErr: serialization},
		{name: "exclusion violation not retried", results: []error{&pgconn.PgError{Code: codeExclusionViolation}, nil}, wantCalls: 1, wantErr: &pgconn.PgError{Code: codeExclusionViolation}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := retrySerialization("create booking", func() error {
				err := tc.results[calls]
				calls++
				return err
			})

			assert.Equal(t, tc.wantCalls, calls)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tc.wantErr, err)
			}
		})
	}
}
