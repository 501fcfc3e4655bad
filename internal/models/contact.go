package models

import (
	"time"

	"github.com/google/uuid"
)

type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactRejected  ContactStatus = "rejected"
	ContactFulfilled ContactStatus = "fulfilled"
)

func (s ContactStatus) Valid() bool {
	return s == ContactPending || s == ContactRejected || s == ContactFulfilled
}

type Contact struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"not null" json:"name"`
	Email   string    `gorm:"not null" json:"email"`
	Phone   string    `gorm:"type:varchar(30)" json:"phone"`
	Subject string    `json:"subject"`
	Message string    `gorm:"not null" json:"message"`

	Status ContactStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	IsRead bool          `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
