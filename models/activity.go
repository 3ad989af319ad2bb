package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity types written by the ledger endpoints.
const (
	ActivityExpenseAdded   = "expense_added"
	ActivitySettleUpPlan   = "settle_up_planned"
	ActivitySettlementPaid = "settlement_paid"
	ActivityPaymentAdded   = "payment_recorded"
	ActivityWalletAdded    = "wallet_contribution"
	ActivityWalletSpent    = "wallet_expense"
)

type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID     uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	UserID      uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Type        string    `gorm:"not null;size:30" json:"type"`
	ReferenceID uuid.UUID `gorm:"type:uuid" json:"reference_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
