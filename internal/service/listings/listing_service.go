package listings

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/repository"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
	"github.com/Domenick1991/yardhoppers/internal/storage"
)

type ListingUseCase interface {
	Create(ctx context.Context, input CreateListingInput) (*domain.Listing, error)
	Search(ctx context.Context, filters map[string]string) ([]domain.Listing, error)
	Get(ctx context.Context, id int64) (*domain.Listing, error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch map[string]any) (*domain.Listing, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
	AttachPhoto(ctx context.Context, actor domain.Actor, id int64, r io.Reader, filename string) (*domain.Listing, error)
}

type ListingService struct {
	listings repository.ListingRepository
	photos   storage.PhotoStore
}

// CreateListingInput carries a new listing. Either PhotoURL or Photo must be set;
// an uploaded Photo wins over PhotoURL.
type CreateListingInput struct {
	HostUser      string
	PriceCents    int64
	Title         string
	Description   string
	PhotoURL      string
	City          string
	State         string
	Zipcode       string
	Address       string
	Photo         io.Reader
	PhotoFilename string
}

func NewListingService(listings repository.ListingRepository, photos storage.PhotoStore) *ListingService {
	return &ListingService{listings: listings, photos: photos}
}

func (s *ListingService) Create(ctx context.Context, input CreateListingInput) (*domain.Listing, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	taken, err := s.listings.AddressTaken(ctx, input.Address)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateListing, input.Address)
	}

	photoURL := input.PhotoURL
	if input.Photo != nil {
		if photoURL, err = s.upload(ctx, input.Photo, input.PhotoFilename); err != nil {
			return nil, err
		}
	}

	listing := &domain.Listing{
		HostUser:    input.HostUser,
		PriceCents:  input.PriceCents,
		Title:       input.Title,
		Description: input.Description,
		PhotoURL:    photoURL,
		City:        input.City,
		State:       input.State,
		Zipcode:     input.Zipcode,
		Address:     input.Address,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	log.Printf("listing %d created by %s", listing.ID, listing.HostUser)
	return listing, nil
}

func (s *ListingService) Search(ctx context.Context, filters map[string]string) ([]domain.Listing, error) {
	fields := make(sqlbuilder.Fields, len(filters))
	for k, v := range filters {
		if strings.TrimSpace(v) == "" {
			continue
		}
		fields[k] = v
	}
	return s.listings.Search(ctx, fields)
}

func (s *ListingService) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

func (s *ListingService) Update(ctx context.Context, actor domain.Actor, id int64, patch map[string]any) (*domain.Listing, error) {
	fields, err := normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.listings.Update(ctx, id, fields)
}

// Delete removes the listing. Only its host or an admin may delete it.
func (s *ListingService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(listing) {
		return fmt.Errorf("%w: %s cannot delete listing %d", domain.ErrForbidden, actor.Username, id)
	}

	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("listing %d deleted by %s", id, actor.Username)
	return nil
}

func (s *ListingService) AttachPhoto(ctx context.Context, actor domain.Actor, id int64, r io.Reader, filename string) (*domain.Listing, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}

	url, err := s.upload(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	return s.listings.Update(ctx, id, sqlbuilder.Fields{"photoUrl": url})
}

func (s *ListingService) owned(ctx context.Context, actor domain.Actor, id int64) (*domain.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(actor.Username) {
		return nil, fmt.Errorf("%w: listing %d belongs to another host", domain.ErrForbidden, id)
	}
	return listing, nil
}

func (s *ListingService) upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	if s.photos == nil {
		return "", domain.InvalidArgument("photo uploads are not configured")
	}
	url, err := s.photos.Upload(ctx, r, filename)
	if err != nil {
		return "", domain.StoreError("upload photo", err)
	}
	return url, nil
}

func (in CreateListingInput) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"hostUser", in.HostUser},
		{"description", in.Description},
		{"city", in.City},
		{"state", in.State},
		{"zipcode", in.Zipcode},
		{"address", in.Address},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return domain.InvalidArgument("%s is required", field.name)
		}
	}
	if in.PriceCents <= 0 {
		return domain.InvalidArgument("price must be positive")
	}
	if in.Photo == nil && strings.TrimSpace(in.PhotoURL) == "" {
		return domain.InvalidArgument("photoUrl or a photo upload is required")
	}
	return nil
}

var requiredText = map[string]bool{
	"city":    true,
	"state":   true,
	"zipcode": true,
	"address": true,
}

// normalizePatch checks value types of a listing patch. Field names are
// checked against the listing schema by the repository.
func normalizePatch(patch map[string]any) (sqlbuilder.Fields, error) {
	if len(patch) == 0 {
		return nil, domain.InvalidArgument("no data to update")
	}

	fields := make(sqlbuilder.Fields, len(patch))
	for name, value := range patch {
		if name == "price" {
			price, err := priceCents(value)
			if err != nil {
				return nil, err
			}
			fields[name] = price
			continue
		}

		text, ok := value.(string)
		if !ok {
			return nil, domain.InvalidArgument("%s must be a string", name)
		}
		if requiredText[name] && strings.TrimSpace(text) == "" {
			return nil, domain.InvalidArgument("%s cannot be empty", name)
		}
		fields[name] = text
	}
	return fields, nil
}

func priceCents(value any) (int64, error) {
	var price int64
	switch v := value.(type) {
	case int:
		price = int64(v)
	case int64:
		price = v
	case float64:
		if v != math.Trunc(v) {
			return 0, domain.InvalidArgument("price must be a whole number of cents")
		}
		price = int64(v)
	default:
		return 0, domain.InvalidArgument("price must be a number")
	}
	if price <= 0 {
		return 0, domain.InvalidArgument("price must be positive")
	}
	return price, nil
}

var _ ListingUseCase = (*ListingService)(nil)
