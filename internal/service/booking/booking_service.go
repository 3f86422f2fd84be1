package booking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/kafka"
	"github.com/Domenick1991/yardhoppers/internal/repository"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, id int64, patch UpdateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookingsForUser(ctx context.Context, username string) ([]domain.Booking, error)
}

// Locker serializes booking writes per listing across instances.
type Locker interface {
	AcquireListingLock(ctx context.Context, listingID int64, ttl time.Duration) (string, bool, error)
	ReleaseListingLock(ctx context.Context, listingID int64, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	listings           repository.ListingRepository
	locker             Locker
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	lockRetries        int
	lockBackoff        time.Duration
}

type CreateBookingInput struct {
	ListingID   int64
	BookingUser string
	CheckIn     time.Time
	CheckOut    time.Time
}

// UpdateBookingInput is a partial update; nil fields are left untouched.
type UpdateBookingInput struct {
	BookingUser *string
	CheckIn     *time.Time
	CheckOut    *time.Time
}

func (in UpdateBookingInput) fields() sqlbuilder.Fields {
	fields := sqlbuilder.Fields{}
	if in.BookingUser != nil {
		fields["bookingUser"] = *in.BookingUser
	}
	if in.CheckIn != nil {
		fields["checkIn"] = domain.Day(*in.CheckIn)
	}
	if in.CheckOut != nil {
		fields["checkOut"] = domain.Day(*in.CheckOut)
	}
	return fields
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithProducer publishes booking events to topic. A nil producer disables publishing.
func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = topic
	}
}

// WithListingLock takes locker's per-listing lock around availability checks,
// retrying up to retries times, backoff apart, before writing unlocked.
func WithListingLock(locker Locker, ttl time.Duration, retries int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = locker
		s.lockTTL = ttl
		s.lockRetries = retries
		s.lockBackoff = backoff
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	listings repository.ListingRepository,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		listings: listings,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.ListingID <= 0 {
		return nil, domain.InvalidArgument("listing id must be positive")
	}
	if strings.TrimSpace(input.BookingUser) == "" {
		return nil, domain.InvalidArgument("booking user is required")
	}

	exists, err := s.listings.Exists(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", domain.ErrListingNotFound, input.ListingID)
	}

	checkIn, checkOut := domain.Day(input.CheckIn), domain.Day(input.CheckOut)
	if !checkIn.Before(checkOut) {
		return nil, &domain.DateRangeError{CheckIn: checkIn, CheckOut: checkOut}
	}

	release, err := s.lockListing(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.ensureAvailable(ctx, input.ListingID, checkIn, checkOut, 0); err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ListingID:   input.ListingID,
		BookingUser: input.BookingUser,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
	}
	if err := s.bookings.CreateConfirmed(ctx, booking); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) UpdateBooking(ctx context.Context, id int64, patch UpdateBookingInput) (*domain.Booking, error) {
	fields := patch.fields()
	if len(fields) == 0 {
		return nil, domain.InvalidArgument("no data to update")
	}
	if patch.BookingUser != nil && strings.TrimSpace(*patch.BookingUser) == "" {
		return nil, domain.InvalidArgument("booking user cannot be empty")
	}

	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if repository.TouchesDates(fields) {
		if !current.Active() {
			return nil, domain.InvalidArgument("booking %d is cancelled", id)
		}
		checkIn, checkOut, err := repository.MergeInterval(current, fields)
		if err != nil {
			return nil, err
		}

		release, err := s.lockListing(ctx, current.ListingID)
		if err != nil {
			return nil, err
		}
		defer release()

		if err := s.ensureAvailable(ctx, current.ListingID, checkIn, checkOut, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.bookings.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingUpdated, updated)
	return updated, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

func (s *BookingService) ListBookingsForUser(ctx context.Context, username string) ([]domain.Booking, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.InvalidArgument("username is required")
	}
	return s.bookings.ListByUser(ctx, username)
}

// ensureAvailable is the advisory overlap check; the store re-checks on write.
func (s *BookingService) ensureAvailable(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) error {
	existing, err := s.bookings.FindOverlapping(ctx, listingID, checkIn, checkOut, excludeID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return &domain.ConflictError{ListingID: listingID, CheckIn: checkIn, CheckOut: checkOut}
	}
	return nil
}

// lockListing returns a release func for the listing lock. Without a locker,
// when the lock backend fails or when the lock stays busy past the retry
// budget, the write proceeds unlocked and the store decides.
func (s *BookingService) lockListing(ctx context.Context, listingID int64) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	for attempt := 0; ; attempt++ {
		token, ok, err := s.locker.AcquireListingLock(ctx, listingID, s.lockTTL)
		if err != nil {
			log.Printf("listing %d lock unavailable, relying on store: %v", listingID, err)
			return noop, nil
		}
		if ok {
			return func() {
				if err := s.locker.ReleaseListingLock(context.WithoutCancel(ctx), listingID, token); err != nil {
					log.Printf("release listing %d lock: %v", listingID, err)
				}
			}, nil
		}
		if attempt >= s.lockRetries {
			log.Printf("listing %d lock still busy after %d attempts, relying on store", listingID, attempt+1)
			return noop, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.lockBackoff):
		}
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, booking)
	key := fmt.Sprint(booking.ID)
	if err := s.producer.Publish(ctx, s.bookingTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %d: %v", eventType, booking.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %d: %v", eventType, booking.ID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
