package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the slice of the account record the ledger endpoints read:
// display name for responses, email and device token for notifications,
// and an optional UPI VPA for payment links.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	UPIID     string    `gorm:"column:upi_id;size:100" json:"upi_id,omitempty"`
	FCMToken  string    `json:"-"`
	Currency  string    `gorm:"default:INR;size:3" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Response struct (what we return to clients)
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	UPIID string    `json:"upi_id,omitempty"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		UPIID: u.UPIID,
	}
}
