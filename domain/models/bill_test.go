package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestBill_Value(t *testing.T) {
	tests := []struct {
		name string
		min  *decimal.Decimal
		max  *decimal.Decimal
		want decimal.Decimal
	}{
		{name: "min only", min: dec(100), want: decimal.NewFromInt(100)},
		{name: "max only", max: dec(200), want: decimal.NewFromInt(200)},
		{name: "neither", want: decimal.Zero},
		{name: "both", min: dec(80), max: dec(120), want: decimal.NewFromInt(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := &Bill{ID: "1", AmountMin: tt.min, AmountMax: tt.max}
			if got := bill.Value(); !got.Equal(tt.want) {
				t.Errorf("Value() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBill_NextDue(t *testing.T) {
	ref := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bill := &Bill{
		ID: "1",
		PayDates: []BillPayment{
			{Date: ref.AddDate(0, 0, -5)},
			{Date: ref.AddDate(0, 1, 0)},
			{Date: ref.AddDate(0, 0, 3)},
		},
	}

	next, ok := bill.NextDue(ref)
	if !ok || !next.Equal(ref.AddDate(0, 0, 3)) {
		t.Errorf("NextDue() = %v, %v", next, ok)
	}
	if bill.IsPaid() {
		t.Errorf("bill without paid dates reported as paid")
	}
}

func TestBillPayment_Delegates(t *testing.T) {
	unresolved := BillPayment{Paid: true}
	if !unresolved.Value().IsZero() {
		t.Errorf("expected zero value without transaction")
	}
	if unresolved.Currency().ID != "0" {
		t.Errorf("expected empty currency without transaction")
	}

	eur := Currency{ID: "1", Code: "EUR"}
	resolved := BillPayment{Paid: true, Transaction: &Transaction{ID: "t", Amount: decimal.NewFromFloat(-12.5), Currency: eur}}
	if !resolved.Value().Equal(decimal.NewFromFloat(-12.5)) {
		t.Errorf("Value() = %s", resolved.Value())
	}
	if resolved.Currency().String() != "EUR" {
		t.Errorf("Currency() = %s", resolved.Currency())
	}
}

func TestPiggyBank_EffectiveCurrency(t *testing.T) {
	usd := Currency{ID: "2", Code: "USD"}
	eur := Currency{ID: "1", Code: "EUR"}

	linked := &PiggyBank{ID: "1", Account: &Account{ID: "a", Currency: eur}}
	if got := linked.EffectiveCurrency().Code; got != "EUR" {
		t.Errorf("expected account currency, got %s", got)
	}

	explicit := &PiggyBank{ID: "2", Account: &Account{ID: "a", Currency: eur}, Currency: &usd}
	if got := explicit.EffectiveCurrency().Code; got != "USD" {
		t.Errorf("expected explicit currency, got %s", got)
	}

	orphan := &PiggyBank{ID: "3"}
	if !orphan.EffectiveCurrency().IsEmpty() {
		t.Errorf("expected empty currency")
	}
}
