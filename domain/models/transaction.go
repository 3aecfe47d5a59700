package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the first split of a server transaction group.
type Transaction struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        Currency        `json:"currency"`
	Date            time.Time       `json:"date"`
	Type            string          `json:"type,omitempty"`
	SourceID        string          `json:"source_id,omitempty"`
	SourceName      string          `json:"source_name,omitempty"`
	DestinationID   string          `json:"destination_id,omitempty"`
	DestinationName string          `json:"destination_name,omitempty"`
	CategoryID      string          `json:"category_id,omitempty"`
	CategoryName    string          `json:"category_name,omitempty"`
}

func (t *Transaction) ObjectType() ObjectType { return TypeTransactions }
func (t *Transaction) ObjectID() string       { return t.ID }
