package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillPayment is either an expected due date or an actual payment.
type BillPayment struct {
	Date        time.Time    `json:"date"`
	Paid        bool         `json:"paid"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Value delegates to the linked transaction, zero when unresolved.
func (p BillPayment) Value() decimal.Decimal {
	if p.Transaction == nil {
		return decimal.Zero
	}
	return p.Transaction.Amount
}

// Currency delegates to the linked transaction.
func (p BillPayment) Currency() Currency {
	if p.Transaction == nil {
		return EmptyCurrency()
	}
	return p.Transaction.Currency
}

// Bill is a recurring expense with its due and paid events in range.
type Bill struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	AmountMin *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax *decimal.Decimal `json:"amount_max,omitempty"`
	Currency  Currency         `json:"currency"`
	PayDates  []BillPayment    `json:"pay_dates"`
	PaidDates []BillPayment    `json:"paid_dates"`
}

func (b *Bill) ObjectType() ObjectType { return TypeBills }
func (b *Bill) ObjectID() string       { return b.ID }

// Value is the midpoint of the expected amounts. A missing bound is
// taken from the other one; with neither set the value is zero.
func (b *Bill) Value() decimal.Decimal {
	switch {
	case b.AmountMin == nil && b.AmountMax == nil:
		return decimal.Zero
	case b.AmountMin == nil:
		return *b.AmountMax
	case b.AmountMax == nil:
		return *b.AmountMin
	}
	return b.AmountMin.Add(*b.AmountMax).Div(decimal.NewFromInt(2))
}

// IsPaid reports whether at least one payment was recorded in range.
func (b *Bill) IsPaid() bool {
	return len(b.PaidDates) > 0
}

// NextDue returns the earliest expected due date not before ref.
func (b *Bill) NextDue(ref time.Time) (time.Time, bool) {
	var next time.Time
	for _, p := range b.PayDates {
		if p.Date.Before(ref) {
			continue
		}
		if next.IsZero() || p.Date.Before(next) {
			next = p.Date
		}
	}
	return next, !next.IsZero()
}
