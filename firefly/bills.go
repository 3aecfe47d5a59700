package firefly

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// Bills fetches bills with their expected and actual payments. The bound
// range is extended by its own length so payments falling due just after
// the period are included.
func (c *Client) Bills(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypeBills)

	params := limitParams()
	if c.rng != nil {
		extended := c.rng.ExtendForBills()
		params = rangeParams(params, &extended)
	}

	body, err := c.get(ctx, "/bills", params)
	if err != nil {
		return view, c.degrade(ctx, "bills", err)
	}
	items, err := decodeResources[billAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "bills", err)
	}

	var txIDs []string
	for _, item := range items {
		for _, paid := range item.Attributes.PaidDates {
			if id := paidTransactionID(paid); id != "" {
				txIDs = append(txIDs, id)
			}
		}
	}

	var linked map[string]*models.Transaction
	if len(txIDs) > 0 {
		txs, err := c.Transactions(ctx, interfaces.TransactionQuery{IDs: txIDs})
		if err != nil {
			return view, err
		}
		linked = txs.Transactions()
	}

	var fallback *models.Currency
	for _, item := range items {
		bill := billFromResource(item, linked)
		if bill.Currency.IsEmpty() {
			if fallback == nil {
				cur, err := c.targetCurrency(ctx, "")
				if err != nil {
					return view, err
				}
				fallback = &cur
			}
			bill.Currency = *fallback
		}
		if err := view.Insert(bill); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping bill %q: %v", bill.ID, err)
		}
	}
	return view, nil
}

func paidTransactionID(p paidDate) string {
	if p.TransactionGroupID != "" {
		return p.TransactionGroupID.String()
	}
	return p.TransactionJournalID.String()
}

func billFromResource(item resource[billAttributes], linked map[string]*models.Transaction) *models.Bill {
	attrs := item.Attributes
	bill := &models.Bill{
		ID:        item.ID.String(),
		Name:      attrs.Name.String(),
		AmountMin: attrs.AmountMin.Ptr(),
		AmountMax: attrs.AmountMax.Ptr(),
		Currency:  attrs.currency(),
		PayDates:  []models.BillPayment{},
		PaidDates: []models.BillPayment{},
	}

	for _, raw := range attrs.PayDates {
		if t, ok := parseTime(raw.String()); ok {
			bill.PayDates = append(bill.PayDates, models.BillPayment{Date: t})
		}
	}
	for _, paid := range attrs.PaidDates {
		t, ok := parseTime(paid.Date.String())
		if !ok {
			continue
		}
		payment := models.BillPayment{Date: t, Paid: true}
		if tx, ok := linked[paidTransactionID(paid)]; ok {
			payment.Transaction = tx
		}
		bill.PaidDates = append(bill.PaidDates, payment)
	}

	sort.Slice(bill.PayDates, func(i, j int) bool { return bill.PayDates[i].Date.Before(bill.PayDates[j].Date) })
	sort.Slice(bill.PaidDates, func(i, j int) bool { return bill.PaidDates[i].Date.Before(bill.PaidDates[j].Date) })
	return bill
}
