package firefly

import (
	"context"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// PiggyBanks fetches piggy banks and resolves their linked accounts.
func (c *Client) PiggyBanks(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypePiggyBanks)

	body, err := c.get(ctx, "/piggy-banks", limitParams())
	if err != nil {
		return view, c.degrade(ctx, "piggy banks", err)
	}
	items, err := decodeResources[piggyBankAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "piggy banks", err)
	}

	var accountIDs []string
	for _, item := range items {
		if id := item.Attributes.linkedAccountID(); id != "" {
			accountIDs = append(accountIDs, id)
		}
	}

	var accounts map[string]*models.Account
	if len(accountIDs) > 0 {
		linked, err := c.Accounts(ctx, interfaces.AccountQuery{IDs: accountIDs})
		if err != nil {
			return view, err
		}
		accounts = linked.Accounts()
	}

	for _, item := range items {
		attrs := item.Attributes
		piggy := &models.PiggyBank{
			ID:            item.ID.String(),
			Name:          attrs.Name.String(),
			Account:       accounts[attrs.linkedAccountID()],
			TargetAmount:  attrs.TargetAmount.Value,
			Percentage:    attrs.Percentage.Value,
			CurrentAmount: attrs.CurrentAmount.Value,
			LeftToSave:    attrs.LeftToSave.Value,
		}
		if cur := attrs.currency(); !cur.IsEmpty() {
			piggy.Currency = &cur
		}
		if err := view.Insert(piggy); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping piggy bank %q: %v", piggy.ID, err)
		}
	}
	return view, nil
}
