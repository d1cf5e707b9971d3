package court

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/storage"
)

// CreateCourtRequest carries data to register a court.
type CreateCourtRequest struct {
	Name        string
	Location    string
	Description string
	Price       money.Amount
	Latitude    *float64
	Longitude   *float64
	OpeningTime *daytime.Time
	ClosingTime *daytime.Time
}

// UpdateCourtRequest carries data for partial updates.
type UpdateCourtRequest struct {
	Name        *string
	Location    *string
	Description *string
	Price       *money.Amount
	Latitude    *float64
	Longitude   *float64
	OpeningTime *daytime.Time
	ClosingTime *daytime.Time
	Status      *Status
}

// Image is an opened court image.
type Image struct {
	Content     io.ReadCloser
	ContentType string
}

type Service interface {
	Create(ctx context.Context, actor auth.Identity, req CreateCourtRequest) (*Court, error)
	GetByID(ctx context.Context, id string) (*Court, error)
	List(ctx context.Context, filter Filter) ([]*Court, int, error)
	Update(ctx context.Context, actor auth.Identity, id string, req UpdateCourtRequest) (*Court, error)
	UploadImage(ctx context.Context, actor auth.Identity, id string, content io.Reader) (*Court, error)
	OpenImage(ctx context.Context, id string, thumbnail bool) (*Image, error)
}

type service struct {
	repo    Repository
	store   storage.Storage
	imgProc *storage.ImageProcessor
}

func NewService(repo Repository, store storage.Storage, imgProc *storage.ImageProcessor) Service {
	if imgProc == nil {
		imgProc = storage.NewImageProcessor()
	}
	return &service{repo: repo, store: store, imgProc: imgProc}
}

func validateCourt(c *Court) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.Price < 0 {
		return ErrInvalidPrice
	}
	if (c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90)) ||
		(c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180)) {
		return ErrInvalidGeo
	}
	// Hours are all-or-nothing and cover a single day.
	if (c.OpeningTime == nil) != (c.ClosingTime == nil) {
		return ErrInvalidOpeningHours
	}
	if c.HasOperatingHours() && *c.OpeningTime >= *c.ClosingTime {
		return ErrInvalidOpeningHours
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor auth.Identity, req CreateCourtRequest) (*Court, error) {
	if !actor.IsVendor() {
		return nil, apperror.Authorization("only vendors can register courts")
	}

	c := &Court{
		VendorID:    actor.UserID,
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Price:       req.Price,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		Status:      StatusActive,
	}
	if err := validateCourt(c); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Court, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Court, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

// ownedCourt loads the court and checks that actor is its vendor.
func (s *service) ownedCourt(ctx context.Context, actor auth.Identity, id string) (*Court, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsVendor() || !c.OwnedBy(actor.UserID) {
		return nil, ErrNotOwner
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, actor auth.Identity, id string, req UpdateCourtRequest) (*Court, error) {
	c, err := s.ownedCourt(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		c.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Price != nil {
		c.Price = *req.Price
	}
	if req.Latitude != nil {
		c.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		c.Longitude = req.Longitude
	}
	if req.OpeningTime != nil {
		c.OpeningTime = req.OpeningTime
	}
	if req.ClosingTime != nil {
		c.ClosingTime = req.ClosingTime
	}
	if req.Status != nil {
		c.Status = *req.Status
	}

	if err := validateCourt(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func imageKeys(courtID string) (original, thumb string) {
	return fmt.Sprintf("courts/%s/image.jpg", courtID), fmt.Sprintf("courts/%s/thumb.jpg", courtID)
}

func (s *service) UploadImage(ctx context.Context, actor auth.Identity, id string, content io.Reader) (*Court, error) {
	c, err := s.ownedCourt(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, ErrImageRequired
	}

	processed, err := s.imgProc.Process(content)
	if err != nil {
		if errors.Is(err, storage.ErrNotAnImage) {
			return nil, apperror.Wrap(err, apperror.KindValidation, "uploaded file is not a supported image")
		}
		return nil, err
	}

	origKey, thumbKey := imageKeys(c.ID)
	if err := s.store.Put(ctx, origKey, bytes.NewReader(processed.Original)); err != nil {
		return nil, fmt.Errorf("store court image: %w", err)
	}
	if err := s.store.Put(ctx, thumbKey, bytes.NewReader(processed.Thumbnail)); err != nil {
		_ = s.store.Remove(ctx, origKey)
		return nil, fmt.Errorf("store court thumbnail: %w", err)
	}

	if err := s.repo.SetImage(ctx, c.ID, &origKey, &thumbKey); err != nil {
		_ = s.store.Remove(ctx, origKey)
		_ = s.store.Remove(ctx, thumbKey)
		return nil, err
	}
	c.ImagePath, c.ThumbnailPath = &origKey, &thumbKey
	return c, nil
}

func (s *service) OpenImage(ctx context.Context, id string, thumbnail bool) (*Image, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := c.ImagePath
	if thumbnail {
		key = c.ThumbnailPath
	}
	if key == nil {
		return nil, ErrImageNotFound
	}

	rc, err := s.store.Open(ctx, *key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &Image{Content: rc, ContentType: "image/jpeg"}, nil
}
