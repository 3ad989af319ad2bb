package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type position struct {
	id     uuid.UUID
	amount decimal.Decimal
}

// Plan turns net balances into transfers that zero every balance.
//
// Payers (negative balances) and receivers (positive balances) are queued in
// ascending participant id order. The head payer pays the head receiver the
// smaller of their two outstanding amounts, and whichever side is exhausted
// moves on. This greedy pass produces at most payers+receivers-1 transfers but
// is not guaranteed to find the global minimum.
//
// Matching runs on exact balances and each transfer amount is rounded to
// cents on its own. Balances that are already whole cents, as every stored
// amount is, come out exact. Sub-cent balances can make the rounded transfers
// into a receiver add up to more or less than their rounded balance: payers at
// -0.005 and -0.005 against a receiver at +0.01 yield two 0.01 transfers.
//
// Balances that do not sum to zero are rejected before any transfer is built.
func Plan(balances NetBalance) ([]Transfer, error) {
	if total := balances.Sum(); !total.IsZero() {
		return nil, integrityErr("balances do not sum to zero", "total="+total.String())
	}

	var payers, receivers []position
	for _, id := range balances.Participants() {
		v := balances[id]
		switch v.Sign() {
		case 1:
			receivers = append(receivers, position{id: id, amount: v})
		case -1:
			payers = append(payers, position{id: id, amount: v.Neg()})
		}
	}

	transfers := make([]Transfer, 0, len(payers)+len(receivers))
	i, j := 0, 0
	for i < len(payers) && j < len(receivers) {
		p, r := &payers[i], &receivers[j]

		send := decimal.Min(p.amount, r.amount)
		if amount := Round(send); amount.IsPositive() {
			transfers = append(transfers, Transfer{FromID: p.id, ToID: r.id, Amount: amount})
		}

		p.amount = p.amount.Sub(send)
		r.amount = r.amount.Sub(send)
		if p.amount.IsZero() {
			i++
		}
		if r.amount.IsZero() {
			j++
		}
	}

	if i != len(payers) || j != len(receivers) {
		// Unreachable with exact arithmetic on a zero-sum input.
		return nil, integrityErr("settlement queues exhausted unevenly", "")
	}
	return transfers, nil
}
