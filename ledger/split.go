package ledger

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitType selects how an expense amount is divided.
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitExact      SplitType = "exact"
	SplitPercentage SplitType = "percentage"
	SplitShares     SplitType = "shares"
)

var hundred = decimal.NewFromInt(100)

// Share is one participant's portion of an expense.
type Share struct {
	ParticipantID uuid.UUID
	Amount        decimal.Decimal
}

// ShareInput carries the per-participant value of a non-equal split: an
// exact amount, a percentage, or a weight, depending on the split type.
type ShareInput struct {
	ParticipantID uuid.UUID
	Value         decimal.Decimal
}

// BuildShares divides amount according to typ. The returned shares always
// sum to amount exactly and are ordered by participant id.
func BuildShares(typ SplitType, amount decimal.Decimal, participants []uuid.UUID, inputs []ShareInput) ([]Share, error) {
	switch typ {
	case SplitEqual:
		return EqualShares(amount, participants)
	case SplitExact:
		return ExactShares(amount, inputs)
	case SplitPercentage:
		return PercentShares(amount, inputs)
	case SplitShares:
		return WeightedShares(amount, inputs)
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidSplit, typ)
	}
}

// EqualShares splits amount evenly. Leftover cents go one each to the
// participants with the lowest ids.
func EqualShares(amount decimal.Decimal, participants []uuid.UUID) ([]Share, error) {
	if err := checkSplitAmount(amount); err != nil {
		return nil, err
	}
	inputs := make([]ShareInput, len(participants))
	for i, p := range participants {
		inputs[i] = ShareInput{ParticipantID: p, Value: decimal.NewFromInt(1)}
	}
	return apportion(amount, inputs, decimal.NewFromInt(int64(len(participants))))
}

// ExactShares uses the given amounts as is. They must add up to amount.
func ExactShares(amount decimal.Decimal, inputs []ShareInput) ([]Share, error) {
	if err := checkSplitAmount(amount); err != nil {
		return nil, err
	}
	sorted, err := sortedInputs(inputs)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	shares := make([]Share, len(sorted))
	for i, in := range sorted {
		if !in.Value.Equal(Round(in.Value)) {
			return nil, fmt.Errorf("%w: share %s has more than %d decimal places", ErrInvalidSplit, in.Value, CurrencyPlaces)
		}
		total = total.Add(in.Value)
		shares[i] = Share{ParticipantID: in.ParticipantID, Amount: in.Value}
	}
	if !total.Equal(amount) {
		return nil, fmt.Errorf("%w: split amounts (%s) don't add up to total (%s)", ErrInvalidSplit,
			total.StringFixed(CurrencyPlaces), amount.StringFixed(CurrencyPlaces))
	}
	return shares, nil
}

// PercentShares splits by percentage. Percentages must add up to 100.
func PercentShares(amount decimal.Decimal, inputs []ShareInput) ([]Share, error) {
	if err := checkSplitAmount(amount); err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, in := range inputs {
		total = total.Add(in.Value)
	}
	if !total.Equal(hundred) {
		return nil, fmt.Errorf("%w: percentages must add up to 100, got %s", ErrInvalidSplit, total.String())
	}
	return apportion(amount, inputs, hundred)
}

// WeightedShares splits in proportion to each participant's weight.
func WeightedShares(amount decimal.Decimal, inputs []ShareInput) ([]Share, error) {
	if err := checkSplitAmount(amount); err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, in := range inputs {
		total = total.Add(in.Value)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total shares must be greater than 0", ErrInvalidSplit)
	}
	return apportion(amount, inputs, total)
}

// apportion gives each input floor(cents*value/divisor) cents, then hands the
// leftover cents to the largest remainders, lowest id first on ties.
func apportion(amount decimal.Decimal, inputs []ShareInput, divisor decimal.Decimal) ([]Share, error) {
	sorted, err := sortedInputs(inputs)
	if err != nil {
		return nil, err
	}

	cents := amount.Shift(CurrencyPlaces)
	type part struct {
		idx   int
		cents decimal.Decimal
		rem   decimal.Decimal
	}
	parts := make([]part, len(sorted))
	allotted := decimal.Zero
	for i, in := range sorted {
		q, r := cents.Mul(in.Value).QuoRem(divisor, 0)
		parts[i] = part{idx: i, cents: q, rem: r}
		allotted = allotted.Add(q)
	}

	order := slices.Clone(parts)
	slices.SortStableFunc(order, func(a, b part) int {
		return b.rem.Cmp(a.rem)
	})
	left := cents.Sub(allotted).IntPart()
	for k := int64(0); k < left; k++ {
		parts[order[k].idx].cents = parts[order[k].idx].cents.Add(decimal.NewFromInt(1))
	}

	shares := make([]Share, len(parts))
	for i, p := range parts {
		shares[i] = Share{ParticipantID: sorted[i].ParticipantID, Amount: p.cents.Shift(-CurrencyPlaces)}
	}
	return shares, nil
}

func sortedInputs(inputs []ShareInput) ([]ShareInput, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrInvalidSplit)
	}
	sorted := slices.Clone(inputs)
	slices.SortFunc(sorted, func(a, b ShareInput) int {
		return bytes.Compare(a.ParticipantID[:], b.ParticipantID[:])
	})
	for i, in := range sorted {
		if in.Value.IsNegative() {
			return nil, &InvalidAmountError{Kind: "split", Ref: in.ParticipantID.String(), Amount: in.Value}
		}
		if i > 0 && sorted[i-1].ParticipantID == in.ParticipantID {
			return nil, fmt.Errorf("%w: participant %s listed twice", ErrInvalidSplit, in.ParticipantID)
		}
	}
	return sorted, nil
}

func checkSplitAmount(amount decimal.Decimal) error {
	if err := checkAmount("expense", "", amount); err != nil {
		return err
	}
	if !amount.Equal(Round(amount)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidSplit, amount, CurrencyPlaces)
	}
	return nil
}
