package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"splitbills-backend/ledger"
)

// MemberBalance is one member's net position in a group, with the public
// profile fields a client needs to request a UPI payment from them.
// Positive = others owe them, negative = they owe others.
type MemberBalance struct {
	UserResponse
	Amount decimal.Decimal `json:"amount"`
}

// GroupBalanceSummary is returned for GET /api/groups/:id/balances
type GroupBalanceSummary struct {
	GroupID    uuid.UUID         `json:"group_id"`
	GroupName  string            `json:"group_name"`
	Currency   string            `json:"currency"`
	Members    []MemberBalance   `json:"members"`
	Transfers  []ledger.Transfer `json:"transfers"`
	TotalSpent decimal.Decimal   `json:"total_spent"`
}
