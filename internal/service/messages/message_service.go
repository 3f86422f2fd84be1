package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/repository"
)

type MessageUseCase interface {
	Send(ctx context.Context, input SendMessageInput) (*domain.Message, error)
	ListForListing(ctx context.Context, actor domain.Actor, listingID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, actor domain.Actor, id int64) (*domain.Message, error)
}

type SendMessageInput struct {
	ListingID int64
	FromUser  string
	Body      string
}

type MessageService struct {
	messages repository.MessageRepository
	listings repository.ListingRepository
}

func NewMessageService(messages repository.MessageRepository, listings repository.ListingRepository) *MessageService {
	return &MessageService{messages: messages, listings: listings}
}

func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.FromUser) == "" {
		return nil, domain.InvalidArgument("fromUser is required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, domain.InvalidArgument("body is required")
	}

	exists, err := s.listings.Exists(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", domain.ErrListingNotFound, input.ListingID)
	}

	msg := &domain.Message{
		ListingID: input.ListingID,
		FromUser:  input.FromUser,
		Body:      input.Body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListForListing returns the listing's whole inbox to its host or an admin,
// and only the caller's own messages to anyone else.
func (s *MessageService) ListForListing(ctx context.Context, actor domain.Actor, listingID int64) ([]domain.Message, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if actor.CanManage(listing) {
		return msgs, nil
	}

	own := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.FromUser == actor.Username {
			own = append(own, m)
		}
	}
	return own, nil
}

// MarkRead is reserved for the host of the message's listing or an admin.
func (s *MessageService) MarkRead(ctx context.Context, actor domain.Actor, id int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, msg.ListingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(listing) {
		return nil, fmt.Errorf("%w: %s cannot mark message %d read", domain.ErrForbidden, actor.Username, id)
	}

	return s.messages.MarkRead(ctx, id)
}

var _ MessageUseCase = (*MessageService)(nil)
