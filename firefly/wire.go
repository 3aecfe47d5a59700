package firefly

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/shopspring/decimal"
)

// The server has changed field types between releases (ids as numbers,
// amounts as numbers or strings, lists that are sometimes null). The
// scalar types below never fail to decode; a value that cannot be
// coerced becomes its zero value.

// flexString accepts strings, numbers and booleans.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = ""
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = flexString(strings.TrimSpace(v))
		}
	case '{', '[':
	default:
		*s = flexString(b)
	}
	return nil
}

func (s flexString) String() string { return string(s) }

// flexDecimal accepts numbers and numeric strings.
type flexDecimal struct {
	Value decimal.Decimal
	Valid bool
}

func (d *flexDecimal) UnmarshalJSON(b []byte) error {
	var raw flexString
	_ = raw.UnmarshalJSON(b)
	*d = flexDecimal{}
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil
	}
	*d = flexDecimal{Value: v, Valid: true}
	return nil
}

// Ptr returns nil for an absent or invalid value.
func (d flexDecimal) Ptr() *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Value
	return &v
}

// flexInt accepts numbers and numeric strings.
type flexInt struct {
	Value int
	Valid bool
}

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var raw flexString
	_ = raw.UnmarshalJSON(b)
	*i = flexInt{}
	if v, err := strconv.Atoi(string(raw)); err == nil {
		*i = flexInt{Value: v, Valid: true}
	}
	return nil
}

// flexBool accepts booleans, "true"/"false", and 0/1.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var raw flexString
	_ = raw.UnmarshalJSON(b)
	v, err := strconv.ParseBool(string(raw))
	*f = flexBool(err == nil && v)
	return nil
}

// tolerantList decodes an array element by element, dropping elements
// that fail to decode. Anything other than an array yields an empty list.
type tolerantList[T any] []T

func (l *tolerantList[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil
	}
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		*l = append(*l, item)
	}
	return nil
}

// resource is the JSON:API style item used by most endpoints.
type resource[T any] struct {
	ID         flexString `json:"id"`
	Type       string     `json:"type"`
	Attributes *T         `json:"attributes"`
}

// envelope is the top level object carrying data.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	return data, nil
}

// decodeResources returns the well-formed items of a list envelope.
// Items without an id or attributes are skipped.
func decodeResources[T any](body []byte) ([]resource[T], error) {
	data, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: data is not a list", ErrMalformedResponse)
	}

	out := make([]resource[T], 0, len(raws))
	for _, raw := range raws {
		res, ok := decodeResource[T](raw)
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// decodeSingleResource returns the item of a single-object envelope.
func decodeSingleResource[T any](body []byte) (resource[T], error) {
	data, err := decodeEnvelope(body)
	if err != nil {
		return resource[T]{}, err
	}
	res, ok := decodeResource[T](data)
	if !ok {
		return resource[T]{}, fmt.Errorf("%w: incomplete resource", ErrMalformedResponse)
	}
	return res, nil
}

func decodeResource[T any](raw json.RawMessage) (resource[T], bool) {
	var res resource[T]
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, false
	}
	if res.ID == "" || res.Attributes == nil {
		return res, false
	}
	return res, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the date and date-time layouts the server emits.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimePtr(s string) *time.Time {
	t, ok := parseTime(s)
	if !ok {
		return nil
	}
	return &t
}

// currencyFields is embedded by attributes carrying currency columns.
type currencyFields struct {
	CurrencyID            flexString `json:"currency_id"`
	CurrencyName          flexString `json:"currency_name"`
	CurrencyCode          flexString `json:"currency_code"`
	CurrencySymbol        flexString `json:"currency_symbol"`
	CurrencyDecimalPlaces flexInt    `json:"currency_decimal_places"`
}

func (f currencyFields) currency() models.Currency {
	c := models.Currency{
		ID:            f.CurrencyID.String(),
		Name:          f.CurrencyName.String(),
		Code:          f.CurrencyCode.String(),
		Symbol:        f.CurrencySymbol.String(),
		Enabled:       true,
		DecimalPlaces: models.DefaultDecimalPlaces,
	}
	if f.CurrencyDecimalPlaces.Valid {
		c.DecimalPlaces = f.CurrencyDecimalPlaces.Value
	}
	return c
}

type sumEntry struct {
	CurrencyID   flexString  `json:"currency_id"`
	CurrencyCode flexString  `json:"currency_code"`
	Sum          flexDecimal `json:"sum"`
}

// sumFor totals the entries in the given currency code.
func sumFor(entries []sumEntry, code string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.CurrencyCode.String() == code && e.Sum.Valid {
			total = total.Add(e.Sum.Value)
		}
	}
	return total
}

type aboutData struct {
	Version    flexString `json:"version"`
	APIVersion flexString `json:"api_version"`
	OS         flexString `json:"os"`
}

type preferenceAttributes struct {
	Name flexString `json:"name"`
	Data flexString `json:"data"`
}

type currencyAttributes struct {
	Name          flexString `json:"name"`
	Code          flexString `json:"code"`
	Symbol        flexString `json:"symbol"`
	DecimalPlaces flexInt    `json:"decimal_places"`
	Enabled       flexBool   `json:"enabled"`
	Default       flexBool   `json:"default"`
}

type accountAttributes struct {
	currencyFields
	Name           flexString  `json:"name"`
	Type           flexString  `json:"type"`
	CurrentBalance flexDecimal `json:"current_balance"`
	IBAN           flexString  `json:"iban"`
}

type categoryAttributes struct {
	Name           flexString             `json:"name"`
	CurrentBalance flexDecimal            `json:"current_balance"`
	Spent          tolerantList[sumEntry] `json:"spent"`
	Earned         tolerantList[sumEntry] `json:"earned"`
}

type budgetAttributes struct {
	Name  flexString             `json:"name"`
	Spent tolerantList[sumEntry] `json:"spent"`
}

type budgetLimitAttributes struct {
	currencyFields
	Amount flexDecimal `json:"amount"`
	Start  flexString  `json:"start"`
	End    flexString  `json:"end"`
}

type paidDate struct {
	Date                 flexString `json:"date"`
	TransactionGroupID   flexString `json:"transaction_group_id"`
	TransactionJournalID flexString `json:"transaction_journal_id"`
}

type billAttributes struct {
	currencyFields
	Name      flexString               `json:"name"`
	AmountMin flexDecimal              `json:"amount_min"`
	AmountMax flexDecimal              `json:"amount_max"`
	PayDates  tolerantList[flexString] `json:"pay_dates"`
	PaidDates tolerantList[paidDate]   `json:"paid_dates"`
}

type piggyAccount struct {
	AccountID flexString `json:"account_id"`
	ID        flexString `json:"id"`
}

type piggyBankAttributes struct {
	currencyFields
	Name          flexString                 `json:"name"`
	AccountID     flexString                 `json:"account_id"`
	Accounts      tolerantList[piggyAccount] `json:"accounts"`
	TargetAmount  flexDecimal                `json:"target_amount"`
	Percentage    flexDecimal                `json:"percentage"`
	CurrentAmount flexDecimal                `json:"current_amount"`
	LeftToSave    flexDecimal                `json:"left_to_save"`
}

// linkedAccountID supports both the single account_id field and the
// newer accounts list.
func (a piggyBankAttributes) linkedAccountID() string {
	if a.AccountID != "" {
		return a.AccountID.String()
	}
	for _, acc := range a.Accounts {
		if acc.AccountID != "" {
			return acc.AccountID.String()
		}
		if acc.ID != "" {
			return acc.ID.String()
		}
	}
	return ""
}

type transactionSplit struct {
	currencyFields
	TransactionJournalID flexString  `json:"transaction_journal_id"`
	Type                 flexString  `json:"type"`
	Date                 flexString  `json:"date"`
	Amount               flexDecimal `json:"amount"`
	Description          flexString  `json:"description"`
	SourceID             flexString  `json:"source_id"`
	SourceName           flexString  `json:"source_name"`
	DestinationID        flexString  `json:"destination_id"`
	DestinationName      flexString  `json:"destination_name"`
	CategoryID           flexString  `json:"category_id"`
	CategoryName         flexString  `json:"category_name"`
}

type transactionGroupAttributes struct {
	Transactions tolerantList[transactionSplit] `json:"transactions"`
}

type autocompleteItem struct {
	ID              flexString `json:"id"`
	Name            flexString `json:"name"`
	NameWithBalance flexString `json:"name_with_balance"`
	Type            flexString `json:"type"`
}
