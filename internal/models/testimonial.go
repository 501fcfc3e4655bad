package models

import (
	"time"

	"github.com/google/uuid"
)

type Testimonial struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Rating int    `gorm:"not null" json:"rating"` // 1..5
	Body   string `gorm:"not null" json:"body"`

	Approved bool `gorm:"default:false;index" json:"approved"`
	Featured bool `gorm:"default:false" json:"featured"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
