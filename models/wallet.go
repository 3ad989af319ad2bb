package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"splitbills-backend/ledger"
)

// WalletContribution is money a member put into the group's shared wallet.
type WalletContribution struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID       `gorm:"type:uuid;index" json:"group_id"`
	UserID    uuid.UUID       `gorm:"type:uuid" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Note      string          `gorm:"size:255" json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (w *WalletContribution) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (w *WalletContribution) Entry() ledger.WalletEntry {
	return ledger.WalletEntry{ID: w.ID, Amount: w.Amount}
}

// WalletExpense is money spent out of the shared wallet.
type WalletExpense struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID       `gorm:"type:uuid;index" json:"group_id"`
	AddedBy   uuid.UUID       `gorm:"type:uuid" json:"added_by"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Title     string          `gorm:"not null;size:120" json:"title"`
	CreatedAt time.Time       `json:"created_at"`
}

func (w *WalletExpense) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (w *WalletExpense) Entry() ledger.WalletEntry {
	return ledger.WalletEntry{ID: w.ID, Amount: w.Amount}
}

type WalletContributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type WalletExpenseRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Title  string          `json:"title" binding:"required"`
}

// WalletSummary is returned for GET /api/groups/:id/wallet
type WalletSummary struct {
	GroupID       uuid.UUID       `json:"group_id"`
	GroupName     string          `json:"group_name"`
	WalletEnabled bool            `json:"wallet_enabled"`
	TotalAdded    decimal.Decimal `json:"total_added"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	Remaining     decimal.Decimal `json:"remaining_balance"`
}
