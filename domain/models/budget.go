package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget carries in-range spending and the first configured limit.
type Budget struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Spent      decimal.Decimal `json:"spent"`
	Currency   Currency        `json:"currency"`
	Limit      decimal.Decimal `json:"limit"`
	LimitStart *time.Time      `json:"limit_start,omitempty"`
	LimitEnd   *time.Time      `json:"limit_end,omitempty"`
}

func (b *Budget) ObjectType() ObjectType { return TypeBudgets }
func (b *Budget) ObjectID() string       { return b.ID }

// Left is the remaining amount of the limit, spent being negative-signed.
func (b *Budget) Left() decimal.Decimal {
	return b.Limit.Add(b.Spent)
}
