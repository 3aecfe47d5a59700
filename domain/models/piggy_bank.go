package models

import (
	"github.com/shopspring/decimal"
)

// PiggyBank is a savings goal tied to an account.
type PiggyBank struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Account       *Account        `json:"account,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	Percentage    decimal.Decimal `json:"percentage"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	LeftToSave    decimal.Decimal `json:"left_to_save"`
	Currency      *Currency       `json:"currency,omitempty"`
}

func (p *PiggyBank) ObjectType() ObjectType { return TypePiggyBanks }
func (p *PiggyBank) ObjectID() string       { return p.ID }

// EffectiveCurrency falls back to the linked account's currency.
func (p *PiggyBank) EffectiveCurrency() Currency {
	if p.Currency != nil && !p.Currency.IsEmpty() {
		return *p.Currency
	}
	if p.Account != nil {
		return p.Account.Currency
	}
	return EmptyCurrency()
}
