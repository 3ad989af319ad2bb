package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"splitbills-backend/ledger"
)

type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID     uuid.UUID       `gorm:"type:uuid;index" json:"group_id"`
	PaidBy      uuid.UUID       `gorm:"type:uuid" json:"paid_by"`
	Title       string          `gorm:"not null;size:120" json:"title"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency    string          `gorm:"default:INR;size:3" json:"currency"`
	SplitType   string          `gorm:"not null;size:20" json:"split_type"` // equal, exact, percentage, shares
	Notes       string          `json:"notes,omitempty"`
	ExpenseDate time.Time       `gorm:"type:date;default:CURRENT_DATE" json:"expense_date"`
	Splits      []ExpenseSplit  `gorm:"foreignKey:ExpenseID" json:"splits,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Record projects the row onto the ledger input type.
func (e *Expense) Record() ledger.ExpenseRecord {
	return ledger.ExpenseRecord{
		ID:      e.ID,
		GroupID: e.GroupID,
		PayerID: e.PaidBy,
		Amount:  e.Amount,
	}
}

type ExpenseSplit struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseID   uuid.UUID       `gorm:"type:uuid;index;uniqueIndex:idx_split_expense_user" json:"expense_id"`
	UserID      uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_split_expense_user" json:"user_id"`
	ShareAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"share_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (es *ExpenseSplit) BeforeCreate(tx *gorm.DB) error {
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	return nil
}

func (es *ExpenseSplit) Record() ledger.SplitRecord {
	return ledger.SplitRecord{
		ExpenseID:     es.ExpenseID,
		ParticipantID: es.UserID,
		ShareAmount:   es.ShareAmount,
	}
}

// Request structs
type CreateExpenseRequest struct {
	Title       string          `json:"title" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paid_by"` // defaults to the caller
	Currency    string          `json:"currency"`
	SplitType   string          `json:"split_type" binding:"omitempty,oneof=equal exact percentage shares"`
	Notes       string          `json:"notes"`
	ExpenseDate string          `json:"expense_date"` // YYYY-MM-DD
	Splits      []SplitInput    `json:"splits"`       // required for exact, percentage, shares
}

type SplitInput struct {
	UserID string          `json:"user_id" binding:"required"`
	Value  decimal.Decimal `json:"value"` // exact amount, percentage, or share count
}

// Response
type ExpenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	GroupID     uuid.UUID       `json:"group_id"`
	PaidBy      uuid.UUID       `json:"paid_by"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SplitType   string          `json:"split_type"`
	Notes       string          `json:"notes,omitempty"`
	ExpenseDate time.Time       `json:"expense_date"`
	Splits      []SplitResponse `json:"splits"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SplitResponse struct {
	UserID      uuid.UUID       `json:"user_id"`
	ShareAmount decimal.Decimal `json:"share_amount"`
}

func (e *Expense) ToResponse() ExpenseResponse {
	splits := make([]SplitResponse, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = SplitResponse{UserID: s.UserID, ShareAmount: s.ShareAmount}
	}
	return ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PaidBy:      e.PaidBy,
		Title:       e.Title,
		Amount:      e.Amount,
		Currency:    e.Currency,
		SplitType:   e.SplitType,
		Notes:       e.Notes,
		ExpenseDate: e.ExpenseDate,
		Splits:      splits,
		CreatedAt:   e.CreatedAt,
	}
}
