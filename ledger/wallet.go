package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletEntry is one movement of a group's shared wallet: money a member put
// in, or money spent out of it.
type WalletEntry struct {
	ID     uuid.UUID
	Amount decimal.Decimal
}

// WalletSummary is the state of a group's shared wallet.
type WalletSummary struct {
	TotalAdded decimal.Decimal
	TotalSpent decimal.Decimal
	Remaining  decimal.Decimal
}

// SummarizeWallet totals contributions and spends. Remaining may go negative
// when the wallet is overdrawn; that is reported, not rejected.
func SummarizeWallet(contributions, spends []WalletEntry) (WalletSummary, error) {
	added, spent := decimal.Zero, decimal.Zero
	for _, c := range contributions {
		if err := checkAmount("contribution", c.ID.String(), c.Amount); err != nil {
			return WalletSummary{}, err
		}
		added = added.Add(c.Amount)
	}
	for _, s := range spends {
		if err := checkAmount("wallet_expense", s.ID.String(), s.Amount); err != nil {
			return WalletSummary{}, err
		}
		spent = spent.Add(s.Amount)
	}
	return WalletSummary{
		TotalAdded: added,
		TotalSpent: spent,
		Remaining:  added.Sub(spent),
	}, nil
}
