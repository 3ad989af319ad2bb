package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string        `gorm:"not null;size:100" json:"name"`
	Type          string        `gorm:"default:OTHER;size:20" json:"type"` // ROOM, TRIP, FRIENDS, OTHER
	CreatedBy     uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	WalletEnabled bool          `gorm:"default:false" json:"wallet_enabled"`
	Members       []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type GroupMember struct {
	GroupID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"group_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role     string    `gorm:"default:member;size:20" json:"role"` // admin, member
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
