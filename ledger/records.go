// Package ledger folds group expenses and paid settlements into net balances
// and plans the peer-to-peer transfers that bring those balances to zero.
//
// All amounts are exact decimals. Nothing here touches storage or the
// network; callers hand in a Snapshot read from one consistent transaction.
package ledger

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision reported values are rounded to.
const CurrencyPlaces = 2

// SettlementStatus is the lifecycle state of a settlement row.
type SettlementStatus string

const (
	StatusPending SettlementStatus = "PENDING"
	StatusPaid    SettlementStatus = "PAID"
)

// Valid reports whether s is a known status.
func (s SettlementStatus) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// ExpenseRecord is one expense paid upfront in full by PayerID.
type ExpenseRecord struct {
	ID      uuid.UUID
	GroupID uuid.UUID
	PayerID uuid.UUID
	Amount  decimal.Decimal
}

// SplitRecord is the share of one expense attributed to one participant.
type SplitRecord struct {
	ExpenseID     uuid.UUID
	ParticipantID uuid.UUID
	ShareAmount   decimal.Decimal
}

// SplitIndex groups split rows by the expense they belong to.
type SplitIndex map[uuid.UUID][]SplitRecord

// IndexSplits builds a SplitIndex from a flat batch of split rows.
func IndexSplits(rows []SplitRecord) SplitIndex {
	idx := make(SplitIndex)
	for _, r := range rows {
		idx[r.ExpenseID] = append(idx[r.ExpenseID], r)
	}
	return idx
}

// SettlementRecord is a payment between two members, proposed or done.
type SettlementRecord struct {
	ID      uuid.UUID
	GroupID uuid.UUID
	FromID  uuid.UUID
	ToID    uuid.UUID
	Amount  decimal.Decimal
	Status  SettlementStatus
}

// Snapshot is everything the aggregator needs for one group.
type Snapshot struct {
	GroupID     uuid.UUID
	Members     []uuid.UUID
	Expenses    []ExpenseRecord
	Splits      SplitIndex
	Settlements []SettlementRecord
}

// NetBalance maps a participant to what they are owed (positive) or owe
// (negative).
type NetBalance map[uuid.UUID]decimal.Decimal

// Sum returns the total of all balances. Zero for a consistent group.
func (nb NetBalance) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range nb {
		total = total.Add(v)
	}
	return total
}

// Participants returns the ids in ascending order.
func (nb NetBalance) Participants() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(nb))
	for id := range nb {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Merge adds other into nb. Partial balances of disjoint record sets can be
// computed concurrently and merged in any order.
func (nb NetBalance) Merge(other NetBalance) {
	for id, v := range other {
		nb.add(id, v)
	}
}

// Rounded returns a copy rounded for presentation.
func (nb NetBalance) Rounded() NetBalance {
	out := make(NetBalance, len(nb))
	for id, v := range nb {
		out[id] = Round(v)
	}
	return out
}

func (nb NetBalance) add(id uuid.UUID, v decimal.Decimal) {
	cur, ok := nb[id]
	if !ok {
		cur = decimal.Zero
	}
	nb[id] = cur.Add(v)
}

func (nb NetBalance) touch(id uuid.UUID) {
	if _, ok := nb[id]; !ok {
		nb[id] = decimal.Zero
	}
}

// Transfer is a recommended payment, not a committed one.
type Transfer struct {
	FromID uuid.UUID
	ToID   uuid.UUID
	Amount decimal.Decimal
}

type transferJSON struct {
	FromUser uuid.UUID   `json:"from_user"`
	ToUser   uuid.UUID   `json:"to_user"`
	Amount   json.Number `json:"amount"`
}

// MarshalJSON emits {"from_user","to_user","amount"} with amount as a number.
func (t Transfer) MarshalJSON() ([]byte, error) {
	return json.Marshal(transferJSON{
		FromUser: t.FromID,
		ToUser:   t.ToID,
		Amount:   json.Number(t.Amount.StringFixed(CurrencyPlaces)),
	})
}

func (t *Transfer) UnmarshalJSON(data []byte) error {
	var raw transferJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return err
	}
	t.FromID, t.ToID, t.Amount = raw.FromUser, raw.ToUser, amount
	return nil
}

// Round rounds to CurrencyPlaces, ties away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
}
