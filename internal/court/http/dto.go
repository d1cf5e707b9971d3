package http

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/request"
)

type CourtResponse struct {
	ID           string    `json:"id"`
	VendorID     string    `json:"vendor_id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	OpeningTime  *string   `json:"opening_time"`
	ClosingTime  *string   `json:"closing_time"`
	Status       string    `json:"status"`
	HasImage     bool      `json:"has_image"`
	ImageURL     *string   `json:"image_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func shortTime(t *daytime.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Short()
	return &s
}

func NewCourtResponse(c *court.Court) CourtResponse {
	resp := CourtResponse{
		ID:          c.ID,
		VendorID:    c.VendorID,
		Name:        c.Name,
		Location:    c.Location,
		Description: c.Description,
		Price:       c.Price.String(),
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		OpeningTime: shortTime(c.OpeningTime),
		ClosingTime: shortTime(c.ClosingTime),
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
	}
	if c.ImagePath != nil {
		img := "/v1/courts/" + c.ID + "/image"
		thumb := "/v1/courts/" + c.ID + "/thumbnail"
		resp.HasImage, resp.ImageURL, resp.ThumbnailURL = true, &img, &thumb
	}
	return resp
}

type ListCourtsRequest struct {
	request.ListParams
	VendorID string `form:"vendor_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive maintenance"`
	Keyword  string `form:"q"`
}

type CreateCourtRequest struct {
	Name        string   `json:"name" binding:"required"`
	Location    string   `json:"location" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,min=0"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	OpeningTime *string  `json:"opening_time"`
	ClosingTime *string  `json:"closing_time"`
}

type UpdateCourtRequest struct {
	Name        *string  `json:"name"`
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	OpeningTime *string  `json:"opening_time"`
	ClosingTime *string  `json:"closing_time"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active inactive maintenance"`
}

func parseOptionalTime(s *string) (*daytime.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := daytime.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalPrice(v *float64) (*money.Amount, error) {
	if v == nil {
		return nil, nil
	}
	a, err := money.FromMajor(*v)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r CreateCourtRequest) toService() (court.CreateCourtRequest, error) {
	out := court.CreateCourtRequest{
		Name:        r.Name,
		Location:    r.Location,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
	price, err := parseOptionalPrice(r.Price)
	if err != nil {
		return out, err
	}
	if price != nil {
		out.Price = *price
	}
	if out.OpeningTime, err = parseOptionalTime(r.OpeningTime); err != nil {
		return out, err
	}
	if out.ClosingTime, err = parseOptionalTime(r.ClosingTime); err != nil {
		return out, err
	}
	return out, nil
}

func (r UpdateCourtRequest) toService() (court.UpdateCourtRequest, error) {
	out := court.UpdateCourtRequest{
		Name:        r.Name,
		Location:    r.Location,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
	var err error
	if out.Price, err = parseOptionalPrice(r.Price); err != nil {
		return out, err
	}
	if out.OpeningTime, err = parseOptionalTime(r.OpeningTime); err != nil {
		return out, err
	}
	if out.ClosingTime, err = parseOptionalTime(r.ClosingTime); err != nil {
		return out, err
	}
	if r.Status != nil {
		st := court.Status(*r.Status)
		out.Status = &st
	}
	return out, nil
}
