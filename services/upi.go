package services

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"splitbills-backend/ledger"
)

var ErrMissingVPA = errors.New("upi_id required")

type UPIRequest struct {
	VPA      string
	Name     string
	Amount   decimal.Decimal
	Note     string
	Currency string
}

// UPILink builds a upi://pay deep link. Parameters keep the pa, pn, am, cu,
// tn order payment apps expect.
func UPILink(req UPIRequest) (string, error) {
	vpa := strings.TrimSpace(req.VPA)
	if vpa == "" {
		return "", ErrMissingVPA
	}
	if req.Amount.IsNegative() {
		return "", &ledger.InvalidAmountError{Kind: "upi", Ref: vpa, Amount: req.Amount}
	}
	name := orDefault(req.Name, "User")
	note := orDefault(req.Note, "Settle Up")
	currency := orDefault(req.Currency, "INR")

	params := [][2]string{
		{"pa", vpa},
		{"pn", name},
		{"am", ledger.Round(req.Amount).StringFixed(ledger.CurrencyPlaces)},
		{"cu", currency},
		{"tn", note},
	}
	var b strings.Builder
	b.WriteString("upi://pay?")
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String(), nil
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
