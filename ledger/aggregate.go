package ledger

import (
	"github.com/google/uuid"
)

// Aggregate folds a group snapshot into one net balance per participant.
//
// Expense payers are credited the expense amount, split participants are
// debited their share, and each PAID settlement credits its sender and debits
// its receiver. PENDING settlements are ignored. Members start at zero and are
// kept in the result even when nothing references them.
//
// The snapshot is validated before anything is folded, and the result is
// rejected unless it sums to exactly zero.
func Aggregate(s Snapshot) (NetBalance, error) {
	if err := validate(s); err != nil {
		return nil, err
	}

	balances := make(NetBalance, len(s.Members))
	for _, m := range s.Members {
		balances.touch(m)
	}

	for _, exp := range s.Expenses {
		balances.add(exp.PayerID, exp.Amount)
		for _, sp := range s.Splits[exp.ID] {
			balances.add(sp.ParticipantID, sp.ShareAmount.Neg())
		}
	}

	for _, st := range s.Settlements {
		if st.Status != StatusPaid {
			continue
		}
		balances.add(st.FromID, st.Amount)
		balances.add(st.ToID, st.Amount.Neg())
	}

	if total := balances.Sum(); !total.IsZero() {
		return nil, integrityErr("balances do not sum to zero", "total="+total.String())
	}
	return balances, nil
}

// validate checks amounts first so a negative value is always reported as
// InvalidAmountError even when the snapshot has other problems.
func validate(s Snapshot) error {
	for _, exp := range s.Expenses {
		if err := checkAmount("expense", exp.ID.String(), exp.Amount); err != nil {
			return err
		}
	}
	for expenseID, rows := range s.Splits {
		for _, sp := range rows {
			if err := checkAmount("split", expenseID.String(), sp.ShareAmount); err != nil {
				return err
			}
		}
	}
	for _, st := range s.Settlements {
		if err := checkAmount("settlement", st.ID.String(), st.Amount); err != nil {
			return err
		}
	}

	expenses := make(map[uuid.UUID]struct{}, len(s.Expenses))
	for _, exp := range s.Expenses {
		if exp.GroupID != s.GroupID {
			return integrityErr("expense belongs to another group", exp.ID.String())
		}
		if _, dup := expenses[exp.ID]; dup {
			return integrityErr("duplicate expense", exp.ID.String())
		}
		expenses[exp.ID] = struct{}{}
	}
	for expenseID, rows := range s.Splits {
		if _, ok := expenses[expenseID]; !ok {
			return integrityErr("split references unknown expense", expenseID.String())
		}
		for _, sp := range rows {
			if sp.ExpenseID != expenseID {
				return integrityErr("split indexed under wrong expense", sp.ExpenseID.String())
			}
		}
	}
	for _, st := range s.Settlements {
		if st.GroupID != s.GroupID {
			return integrityErr("settlement belongs to another group", st.ID.String())
		}
		if !st.Status.Valid() {
			return integrityErr("unknown settlement status "+string(st.Status), st.ID.String())
		}
	}
	return nil
}
