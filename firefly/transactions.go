package firefly

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// Transactions fetches transactions by id, by account, or across the
// bound range, in that order of precedence.
func (c *Client) Transactions(ctx context.Context, q interfaces.TransactionQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeTransactions)

	var (
		txs []*models.Transaction
		err error
	)
	switch {
	case len(q.IDs) > 0:
		txs, err = c.transactionsByID(ctx, q.IDs)
	case q.AccountID != "":
		txs, err = c.transactionList(ctx, "/accounts/"+url.PathEscape(q.AccountID)+"/transactions", q.Limit)
	default:
		txs, err = c.transactionList(ctx, "/transactions", q.Limit)
	}
	if err != nil {
		return view, err
	}

	for _, tx := range txs {
		if err := view.Insert(tx); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping transaction %q: %v", tx.ID, err)
		}
	}
	return view, nil
}

func (c *Client) transactionsByID(ctx context.Context, ids []string) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		body, err := c.get(ctx, "/transactions/"+url.PathEscape(id), nil)
		if err != nil {
			if err := c.degrade(ctx, "transaction "+id, err); err != nil {
				return nil, err
			}
			continue
		}
		res, err := decodeSingleResource[transactionGroupAttributes](body)
		if err != nil {
			if err := c.degrade(ctx, "transaction "+id, err); err != nil {
				return nil, err
			}
			continue
		}
		if tx := transactionFromGroup(res); tx != nil {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// transactionList reads a range-scoped list of transaction groups.
// limit <= 0 requests everything.
func (c *Client) transactionList(ctx context.Context, path string, limit int) ([]*models.Transaction, error) {
	params := limitParams()
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	params = rangeParams(params, c.rng)

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, c.degrade(ctx, "transactions", err)
	}
	groups, err := decodeResources[transactionGroupAttributes](body)
	if err != nil {
		return nil, c.degrade(ctx, "transactions", err)
	}

	txs := make([]*models.Transaction, 0, len(groups))
	for _, group := range groups {
		if tx := transactionFromGroup(group); tx != nil {
			txs = append(txs, tx)
		}
		if limit > 0 && len(txs) >= limit {
			break
		}
	}
	return txs, nil
}

// transactionFromGroup uses the first split of a group. Groups without a
// split or a parseable date are dropped.
func transactionFromGroup(group resource[transactionGroupAttributes]) *models.Transaction {
	splits := group.Attributes.Transactions
	if len(splits) == 0 {
		return nil
	}
	split := splits[0]
	date, ok := parseTime(split.Date.String())
	if !ok {
		return nil
	}
	return &models.Transaction{
		ID:              group.ID.String(),
		Description:     split.Description.String(),
		Amount:          split.Amount.Value,
		Currency:        split.currency(),
		Date:            date,
		Type:            split.Type.String(),
		SourceID:        split.SourceID.String(),
		SourceName:      split.SourceName.String(),
		DestinationID:   split.DestinationID.String(),
		DestinationName: split.DestinationName.String(),
		CategoryID:      split.CategoryID.String(),
		CategoryName:    split.CategoryName.String(),
	}
}
