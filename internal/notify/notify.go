package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/Domenick1991/yardhoppers/internal/kafka"
)

// Sender delivers booking notifications to guests. Delivery is a log line for now.
type Sender struct {
	logf func(format string, args ...any)
}

func NewSender() *Sender {
	return &Sender{logf: log.Printf}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logf("notify %s: %s", event.BookingUser, Message(event))
	return nil
}

// Message renders the guest-facing text for event.
func Message(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("your booking #%d for listing %d from %s to %s is confirmed",
			event.BookingID, event.ListingID, event.CheckIn, event.CheckOut)
	case kafka.EventBookingUpdated:
		return fmt.Sprintf("your booking #%d for listing %d now runs from %s to %s",
			event.BookingID, event.ListingID, event.CheckIn, event.CheckOut)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("your booking #%d for listing %d from %s to %s was cancelled",
			event.BookingID, event.ListingID, event.CheckIn, event.CheckOut)
	default:
		return fmt.Sprintf("booking #%d: %s", event.BookingID, event.Type)
	}
}
