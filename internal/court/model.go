package court

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/money"
)

var (
	ErrNotFound            = apperror.NotFound("court not found")
	ErrNotOwner            = apperror.Authorization("court belongs to another vendor")
	ErrNameRequired        = apperror.Validation("court name is required")
	ErrInvalidPrice        = apperror.Validation("price must be a non-negative amount")
	ErrInvalidGeo          = apperror.Validation("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrInvalidOpeningHours = apperror.Validation("opening_time must be before closing_time")
	ErrInvalidStatus       = apperror.Validation("status must be active, inactive or maintenance")
	ErrImageRequired       = apperror.Validation("an image file is required")
	ErrImageNotFound       = apperror.NotFound("court has no image")
)

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusMaintenance
}

// Court is a bookable futsal pitch owned by a vendor.
type Court struct {
	ID            string
	VendorID      string
	Name          string
	Location      string
	Description   string
	Price         money.Amount
	Latitude      *float64
	Longitude     *float64
	OpeningTime   *daytime.Time
	ClosingTime   *daytime.Time
	Status        Status
	ImagePath     *string
	ThumbnailPath *string
	CreatedAt     time.Time
}

// HasOperatingHours reports whether both opening and closing times are set.
func (c *Court) HasOperatingHours() bool {
	return c.OpeningTime != nil && c.ClosingTime != nil
}

// WithinOperatingHours reports whether [start, end) lies inside the court's hours.
// Courts without hours accept any interval.
func (c *Court) WithinOperatingHours(start, end daytime.Time) bool {
	if !c.HasOperatingHours() {
		return true
	}
	return start >= *c.OpeningTime && end <= *c.ClosingTime
}

// AcceptsBookings reports whether the court is open for reservations.
func (c *Court) AcceptsBookings() bool {
	return c.Status == StatusActive
}

// OwnedBy reports whether vendorID owns the court.
func (c *Court) OwnedBy(vendorID string) bool {
	return vendorID != "" && c.VendorID == vendorID
}

// Filter defines parameters for listing courts.
type Filter struct {
	VendorID string
	Status   Status
	Keyword  string // Search in Name or Location
	Page     int
	PageSize int
}
