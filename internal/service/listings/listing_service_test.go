package listings

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
	"github.com/Domenick1991/yardhoppers/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockListingRepository) AddressTaken(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockListingRepository) Search(ctx context.Context, filters sqlbuilder.Fields) ([]domain.Listing, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockListingRepository) Update(ctx context.Context, id int64, fields sqlbuilder.Fields) (*domain.Listing, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	args := m.Called(ctx, r, filename)
	return args.String(0), args.Error(1)
}

func (m *MockPhotoStore) Open(ctx context.Context, id string) (*storage.Photo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Photo), args.Error(1)
}

func validInput() CreateListingInput {
	return CreateListingInput{
		HostUser:    "host1",
		PriceCents:  2500,
		Title:       "Shady backyard",
		Description: "Big oak tree",
		PhotoURL:    "http://example.com/yard.jpg",
		City:        "Austin",
		State:       "TX",
		Zipcode:     "78701",
		Address:     "1 Main St",
	}
}

func TestListingService_Create_Success(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("AddressTaken", ctx, "1 Main St").Return(false, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Listing")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Listing).ID = 7 }).
		Return(nil).Once()

	listing, err := service.Create(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(7), listing.ID)
	assert.Equal(t, "host1", listing.HostUser)
	assert.Equal(t, int64(2500), listing.PriceCents)
	assert.Equal(t, "http://example.com/yard.jpg", listing.PhotoURL)
	mockRepo.AssertExpectations(t)
}

func TestListingService_Create_UploadsPhoto(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockPhotos := &MockPhotoStore{}
	service := NewListingService(mockRepo, mockPhotos)
	ctx := context.Background()

	input := validInput()
	input.PhotoURL = ""
	input.Photo = strings.NewReader("jpeg")
	input.PhotoFilename = "yard.jpg"

	mockRepo.On("AddressTaken", ctx, "1 Main St").Return(false, nil).Once()
	mockPhotos.On("Upload", ctx, input.Photo, "yard.jpg").Return("http://localhost/photos/abc_yard.jpg", nil).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(l *domain.Listing) bool {
		return l.PhotoURL == "http://localhost/photos/abc_yard.jpg"
	})).Return(nil).Once()

	listing, err := service.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "http://localhost/photos/abc_yard.jpg", listing.PhotoURL)
	mockRepo.AssertExpectations(t)
	mockPhotos.AssertExpectations(t)
}

func TestListingService_Create_ValidationErrors(t *testing.T) {
	service := NewListingService(&MockListingRepository{}, nil)

	testCases := []struct {
		name        string
		mutate      func(*CreateListingInput)
		expectedErr string
	}{
		{name: "No host", mutate: func(in *CreateListingInput) { in.HostUser = "" }, expectedErr: "hostUser is required"},
		{name: "No address", mutate: func(in *CreateListingInput) { in.Address = " " }, expectedErr: "address is required"},
		{name: "Zero price", mutate: func(in *CreateListingInput) { in.PriceCents = 0 }, expectedErr: "price must be positive"},
		{name: "No photo", mutate: func(in *CreateListingInput) { in.PhotoURL = "" }, expectedErr: "photoUrl or a photo upload is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			listing, err := service.Create(context.Background(), input)

			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tc.expectedErr)
			assert.Nil(t, listing)
		})
	}
}

func TestListingService_Create_DuplicateAddress(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockPhotos := &MockPhotoStore{}
	service := NewListingService(mockRepo, mockPhotos)
	ctx := context.Background()

	input := validInput()
	input.Photo = strings.NewReader("jpeg")
	mockRepo.On("AddressTaken", ctx, "1 Main St").Return(true, nil).Once()

	listing, err := service.Create(ctx, input)

	assert.ErrorIs(t, err, domain.ErrDuplicateListing)
	assert.Nil(t, listing)
	mockPhotos.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Create_UploadFailure(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockPhotos := &MockPhotoStore{}
	service := NewListingService(mockRepo, mockPhotos)
	ctx := context.Background()

	input := validInput()
	input.Photo = strings.NewReader("jpeg")
	input.PhotoFilename = "yard.jpg"
	mockRepo.On("AddressTaken", ctx, "1 Main St").Return(false, nil).Once()
	mockPhotos.On("Upload", ctx, input.Photo, "yard.jpg").Return("", errors.New("gridfs down")).Once()

	listing, err := service.Create(ctx, input)

	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Nil(t, listing)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Search_DropsBlankFilters(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()

	expected := []domain.Listing{{ID: 1, City: "Austin"}}
	mockRepo.On("Search", ctx, sqlbuilder.Fields{"city": "aus"}).Return(expected, nil).Once()

	listings, err := service.Search(ctx, map[string]string{"city": "aus", "state": " "})

	require.NoError(t, err)
	assert.Equal(t, expected, listings)
	mockRepo.AssertExpectations(t)
}

func TestListingService_Update(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()
	owner := domain.Actor{Username: "host1"}

	current := &domain.Listing{ID: 3, HostUser: "host1"}
	updated := &domain.Listing{ID: 3, HostUser: "host1", PriceCents: 3000, Title: "New"}

	mockRepo.On("GetByID", ctx, int64(3)).Return(current, nil).Once()
	mockRepo.On("Update", ctx, int64(3), sqlbuilder.Fields{"price": int64(3000), "title": "New"}).Return(updated, nil).Once()

	listing, err := service.Update(ctx, owner, 3, map[string]any{"price": float64(3000), "title": "New"})

	require.NoError(t, err)
	assert.Equal(t, updated, listing)
	mockRepo.AssertExpectations(t)
}

func TestListingService_Update_Forbidden(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(3)).Return(&domain.Listing{ID: 3, HostUser: "host1"}, nil).Once()

	listing, err := service.Update(ctx, domain.Actor{Username: "intruder", IsAdmin: true}, 3, map[string]any{"title": "Mine"})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Nil(t, listing)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_Update_InvalidPatch(t *testing.T) {
	service := NewListingService(&MockListingRepository{}, nil)
	owner := domain.Actor{Username: "host1"}

	testCases := []struct {
		name  string
		patch map[string]any
	}{
		{name: "Empty", patch: map[string]any{}},
		{name: "Negative price", patch: map[string]any{"price": float64(-1)}},
		{name: "Fractional price", patch: map[string]any{"price": 10.5}},
		{name: "Price as text", patch: map[string]any{"price": "ten"}},
		{name: "Blank city", patch: map[string]any{"city": ""}},
		{name: "Non-string title", patch: map[string]any{"title": 42.0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Update(context.Background(), owner, 3, tc.patch)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestListingService_Delete(t *testing.T) {
	testCases := []struct {
		name    string
		actor   domain.Actor
		allowed bool
	}{
		{name: "Owner", actor: domain.Actor{Username: "host1"}, allowed: true},
		{name: "Admin", actor: domain.Actor{Username: "root", IsAdmin: true}, allowed: true},
		{name: "Stranger", actor: domain.Actor{Username: "guest"}, allowed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &MockListingRepository{}
			service := NewListingService(mockRepo, nil)
			ctx := context.Background()

			mockRepo.On("GetByID", ctx, int64(3)).Return(&domain.Listing{ID: 3, HostUser: "host1"}, nil).Once()
			if tc.allowed {
				mockRepo.On("Delete", ctx, int64(3)).Return(nil).Once()
			}

			err := service.Delete(ctx, tc.actor, 3)

			if tc.allowed {
				assert.NoError(t, err)
				mockRepo.AssertExpectations(t)
				return
			}
			assert.ErrorIs(t, err, domain.ErrForbidden)
			mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		})
	}
}

func TestListingService_Delete_HasBookings(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(3)).Return(&domain.Listing{ID: 3, HostUser: "host1"}, nil).Once()
	mockRepo.On("Delete", ctx, int64(3)).Return(domain.ErrListingHasBookings).Once()

	err := service.Delete(ctx, domain.Actor{Username: "host1"}, 3)

	assert.ErrorIs(t, err, domain.ErrListingHasBookings)
}

func TestListingService_AttachPhoto(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockPhotos := &MockPhotoStore{}
	service := NewListingService(mockRepo, mockPhotos)
	ctx := context.Background()
	body := strings.NewReader("png")

	updated := &domain.Listing{ID: 3, HostUser: "host1", PhotoURL: "http://localhost/photos/k_yard.png"}
	mockRepo.On("GetByID", ctx, int64(3)).Return(&domain.Listing{ID: 3, HostUser: "host1"}, nil).Once()
	mockPhotos.On("Upload", ctx, body, "yard.png").Return(updated.PhotoURL, nil).Once()
	mockRepo.On("Update", ctx, int64(3), sqlbuilder.Fields{"photoUrl": updated.PhotoURL}).Return(updated, nil).Once()

	listing, err := service.AttachPhoto(ctx, domain.Actor{Username: "host1"}, 3, body, "yard.png")

	require.NoError(t, err)
	assert.Equal(t, updated.PhotoURL, listing.PhotoURL)
	mockRepo.AssertExpectations(t)
	mockPhotos.AssertExpectations(t)
}

func TestListingService_AttachPhoto_NotConfigured(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(3)).Return(&domain.Listing{ID: 3, HostUser: "host1"}, nil).Once()

	_, err := service.AttachPhoto(ctx, domain.Actor{Username: "host1"}, 3, strings.NewReader("x"), "x.png")

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
