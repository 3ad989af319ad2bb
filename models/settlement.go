package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"splitbills-backend/ledger"
)

// Settlement is a payment between two members. PENDING rows are proposals
// produced by the settle-up planner; only PAID rows count toward balances.
type Settlement struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID       `gorm:"type:uuid;index" json:"group_id"`
	FromUser  uuid.UUID       `gorm:"type:uuid" json:"from_user"`
	ToUser    uuid.UUID       `gorm:"type:uuid" json:"to_user"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status    string          `gorm:"default:PENDING;size:20;index" json:"status"`
	Notes     string          `json:"notes,omitempty"`
	CreatedBy uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Settlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = string(ledger.StatusPending)
	}
	return nil
}

func (s *Settlement) Record() ledger.SettlementRecord {
	return ledger.SettlementRecord{
		ID:      s.ID,
		GroupID: s.GroupID,
		FromID:  s.FromUser,
		ToID:    s.ToUser,
		Amount:  s.Amount,
		Status:  ledger.SettlementStatus(s.Status),
	}
}

// RecordPaymentRequest records money the caller already handed over.
type RecordPaymentRequest struct {
	ToUser string          `json:"to_user" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}
