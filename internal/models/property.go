package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PropertyCategory string

const (
	CategoryApartment  PropertyCategory = "apartment"
	CategoryHouse      PropertyCategory = "house"
	CategoryVilla      PropertyCategory = "villa"
	CategoryPlot       PropertyCategory = "plot"
	CategoryCommercial PropertyCategory = "commercial"
)

func (c PropertyCategory) Valid() bool {
	switch c {
	case CategoryApartment, CategoryHouse, CategoryVilla, CategoryPlot, CategoryCommercial:
		return true
	}
	return false
}

type PropertyPurpose string

const (
	PurposeRent PropertyPurpose = "rent"
	PurposeSale PropertyPurpose = "sale"
)

func (p PropertyPurpose) Valid() bool {
	return p == PurposeRent || p == PurposeSale
}

type PropertyStatus string

const (
	StatusAvailable PropertyStatus = "available"
	StatusSold      PropertyStatus = "sold"
	StatusRented    PropertyStatus = "rented"
)

func (s PropertyStatus) Valid() bool {
	return s == StatusAvailable || s == StatusSold || s == StatusRented
}

type Property struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Title   string `gorm:"not null" json:"title"`
	Address string `json:"address"`
	City    string `gorm:"index" json:"city"`
	State   string `json:"state"`
	Pincode string `gorm:"type:varchar(10)" json:"pincode"`

	Category PropertyCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Purpose  PropertyPurpose  `gorm:"type:varchar(10);not null;index" json:"purpose"`
	Status   PropertyStatus   `gorm:"type:varchar(10);not null;default:'available'" json:"status"`

	Price     int64 `gorm:"not null" json:"price"`
	AreaSqft  int   `json:"area_sqft"`
	Bedrooms  int   `json:"bedrooms"`
	Bathrooms int   `json:"bathrooms"`

	// Amenities: { "parking": true, "lift": false, ... }
	Amenities datatypes.JSON `json:"amenities"`
	// Photos: ["https://...", ...] — at least one, enforced on create
	Photos datatypes.JSON `json:"photos"`

	Description string `json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PropertyLike is the liked-set of an account. Toggling inserts or
// deletes a row, so concurrent toggles never lose an update.
type PropertyLike struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}
