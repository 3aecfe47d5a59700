package models

// DefaultDecimalPlaces is the precision assumed when the server omits it.
const DefaultDecimalPlaces = 2

// Currency describes a currency configured on the server.
type Currency struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	Enabled       bool   `json:"enabled"`
	Default       bool   `json:"default"`
	DecimalPlaces int    `json:"decimal_places"`
}

// EmptyCurrency returns the placeholder used when no currency is known.
func EmptyCurrency() Currency {
	return Currency{ID: "0", DecimalPlaces: DefaultDecimalPlaces}
}

func (c Currency) ObjectType() ObjectType { return TypeCurrencies }
func (c Currency) ObjectID() string       { return c.ID }

// String yields the ISO code, used as lookup key and for display.
func (c Currency) String() string { return c.Code }

// IsEmpty reports whether c carries no code.
func (c Currency) IsEmpty() bool { return c.Code == "" }
