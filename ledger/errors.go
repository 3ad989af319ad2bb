package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrDataIntegrity matches any *DataIntegrityError via errors.Is.
	ErrDataIntegrity = errors.New("ledger data integrity violation")

	// ErrInvalidAmount matches any *InvalidAmountError via errors.Is.
	ErrInvalidAmount = errors.New("invalid ledger amount")

	// ErrInvalidSplit is returned by the split builders for inputs that
	// cannot produce a split (no participants, percents not summing to 100...).
	ErrInvalidSplit = errors.New("invalid split")
)

// DataIntegrityError reports a snapshot the engine refuses to compute on:
// a dangling reference, a record from another group, or a non-zero total.
type DataIntegrityError struct {
	Reason string
	Ref    string
}

func (e *DataIntegrityError) Error() string {
	if e.Ref == "" {
		return "data integrity: " + e.Reason
	}
	return fmt.Sprintf("data integrity: %s (%s)", e.Reason, e.Ref)
}

func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// InvalidAmountError reports a negative amount on an input record.
type InvalidAmountError struct {
	Kind   string // expense, split, settlement, contribution, wallet_expense
	Ref    string
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s amount %s (%s)", e.Kind, e.Amount.String(), e.Ref)
}

func (e *InvalidAmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

func integrityErr(reason, ref string) error {
	return &DataIntegrityError{Reason: reason, Ref: ref}
}

func checkAmount(kind, ref string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &InvalidAmountError{Kind: kind, Ref: ref, Amount: amount}
	}
	return nil
}
