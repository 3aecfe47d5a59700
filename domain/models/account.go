package models

import (
	"github.com/shopspring/decimal"
)

// AccountType is the server-side classification of an account.
type AccountType string

const (
	AccountTypeAsset       AccountType = "asset"
	AccountTypeExpense     AccountType = "expense"
	AccountTypeRevenue     AccountType = "revenue"
	AccountTypeLiabilities AccountType = "liabilities"
	AccountTypeCash        AccountType = "cash"
)

// Account holds one account with its balances at both ends of the range.
type Account struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Type             AccountType     `json:"type"`
	Currency         Currency        `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	BalanceBeginning decimal.Decimal `json:"balance_beginning"`
	IBAN             string          `json:"iban,omitempty"`
	Transactions     []*Transaction  `json:"transactions,omitempty"`
}

func (a *Account) ObjectType() ObjectType { return TypeAccounts }
func (a *Account) ObjectID() string       { return a.ID }

// Difference is the balance change across the range.
func (a *Account) Difference() decimal.Decimal {
	return a.Balance.Sub(a.BalanceBeginning)
}
