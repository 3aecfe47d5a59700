package models

import (
	"github.com/shopspring/decimal"
)

// Category aggregates in-range spending and earnings for one currency.
type Category struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Currency Currency        `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Spent    decimal.Decimal `json:"spent"`
	Earned   decimal.Decimal `json:"earned"`
}

func (c *Category) ObjectType() ObjectType { return TypeCategories }
func (c *Category) ObjectID() string       { return c.ID }

// Net is earned plus spent; spent is negative-signed.
func (c *Category) Net() decimal.Decimal {
	return c.Earned.Add(c.Spent)
}
