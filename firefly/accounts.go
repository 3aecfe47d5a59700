package firefly

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// detailConcurrency bounds parallel per-item detail requests.
const detailConcurrency = 4

func limitParams() url.Values {
	return url.Values{"limit": {strconv.Itoa(PageSizeLimit)}}
}

// NormalizeAccountType maps server account type names onto AccountType.
func NormalizeAccountType(s string) models.AccountType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asset", "default", "default account", "asset account":
		return models.AccountTypeAsset
	case "expense", "expense account", "beneficiary account":
		return models.AccountTypeExpense
	case "revenue", "revenue account":
		return models.AccountTypeRevenue
	case "liability", "liabilities", "loan", "debt", "mortgage":
		return models.AccountTypeLiabilities
	case "cash", "cash account":
		return models.AccountTypeCash
	}
	return models.AccountType(strings.ToLower(strings.TrimSpace(s)))
}

func stringSet(values []string, normalize func(string) string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		if v != "" {
			set[v] = true
		}
	}
	return set
}

// Accounts fetches accounts with their balances at the start and end of
// the bound range. Items whose detail lookups both fail are skipped.
func (c *Client) Accounts(ctx context.Context, q interfaces.AccountQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAccounts)

	body, err := c.get(ctx, "/accounts", limitParams())
	if err != nil {
		return view, c.degrade(ctx, "accounts", err)
	}
	items, err := decodeResources[accountAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "accounts", err)
	}

	types := stringSet(q.Types, func(s string) string { return string(NormalizeAccountType(s)) })
	ids := stringSet(q.IDs, strings.TrimSpace)

	selected := items[:0]
	for _, item := range items {
		if ids != nil && !ids[item.ID.String()] {
			continue
		}
		if types != nil && !types[string(NormalizeAccountType(item.Attributes.Type.String()))] {
			continue
		}
		selected = append(selected, item)
	}

	accounts := make([]*models.Account, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, item := range selected {
		g.Go(func() error {
			acc, err := c.buildAccount(gctx, item, q.TransactionLimit)
			if err != nil {
				return err
			}
			accounts[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return view, err
	}

	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		if err := view.Insert(acc); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping account %q: %v", acc.ID, err)
		}
	}
	return view, nil
}

func (c *Client) buildAccount(ctx context.Context, item resource[accountAttributes], txLimit int) (*models.Account, error) {
	attrs := item.Attributes
	acc := &models.Account{
		ID:       item.ID.String(),
		Name:     attrs.Name.String(),
		Type:     NormalizeAccountType(attrs.Type.String()),
		Currency: attrs.currency(),
		IBAN:     attrs.IBAN.String(),
	}

	if c.rng == nil {
		// A balance that is missing or not a number counts as zero.
		acc.Balance = attrs.CurrentBalance.Value
		acc.BalanceBeginning = attrs.CurrentBalance.Value
	} else {
		begin, beginFound, err := c.balanceAt(ctx, acc.ID, c.rng.Start.Add(-24*time.Hour))
		if err != nil {
			return nil, err
		}
		end, endFound, err := c.balanceAt(ctx, acc.ID, c.rng.End)
		if err != nil {
			return nil, err
		}
		switch {
		case !beginFound && !endFound:
			c.logger.Debug(internal.ComponentFirefly, "No balance for account %s, skipping", acc.ID)
			return nil, nil
		case !beginFound:
			begin = end
		case !endFound:
			end = begin
		}
		acc.BalanceBeginning = begin
		acc.Balance = end
	}

	if txLimit > 0 {
		txs, err := c.transactionList(ctx, "/accounts/"+url.PathEscape(acc.ID)+"/transactions", txLimit)
		if err != nil {
			return nil, err
		}
		acc.Transactions = txs
	}
	return acc, nil
}

// balanceAt returns the account balance on the given date. found is false
// when the detail request fails in a recoverable way or the response has
// no attributes; a balance that is not a number is zero.
func (c *Client) balanceAt(ctx context.Context, id string, at time.Time) (balance decimal.Decimal, found bool, err error) {
	params := url.Values{"date": {at.Format(timerange.DateFormat)}}
	body, err := c.get(ctx, "/accounts/"+url.PathEscape(id), params)
	if err != nil {
		return decimal.Zero, false, c.degrade(ctx, "account "+id, err)
	}
	res, err := decodeSingleResource[accountAttributes](body)
	if err != nil {
		return decimal.Zero, false, c.degrade(ctx, "account "+id, err)
	}
	return res.Attributes.CurrentBalance.Value, true, nil
}
