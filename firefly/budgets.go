package firefly

import (
	"context"
	"net/url"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// Budgets fetches budgets with their spent total in currency and the
// first limit overlapping the bound range.
func (c *Client) Budgets(ctx context.Context, currency string) (*models.Aggregate, error) {
	view := models.NewView(models.TypeBudgets)

	cur, err := c.targetCurrency(ctx, currency)
	if err != nil {
		return view, err
	}

	body, err := c.get(ctx, "/budgets", rangeParams(limitParams(), c.rng))
	if err != nil {
		return view, c.degrade(ctx, "budgets", err)
	}
	items, err := decodeResources[budgetAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "budgets", err)
	}

	for _, item := range items {
		budget := &models.Budget{
			ID:       item.ID.String(),
			Name:     item.Attributes.Name.String(),
			Currency: cur,
			Spent:    sumFor(item.Attributes.Spent, cur.Code),
		}
		if err := c.applyBudgetLimit(ctx, budget); err != nil {
			return view, err
		}
		if err := view.Insert(budget); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping budget %q: %v", budget.ID, err)
		}
	}
	return view, nil
}

// applyBudgetLimit copies the first limit in the budget currency, or the
// first limit at all, onto budget.
func (c *Client) applyBudgetLimit(ctx context.Context, budget *models.Budget) error {
	path := "/budgets/" + url.PathEscape(budget.ID) + "/limits"
	body, err := c.get(ctx, path, rangeParams(nil, c.rng))
	if err != nil {
		return c.degrade(ctx, "budget limits "+budget.ID, err)
	}
	limits, err := decodeResources[budgetLimitAttributes](body)
	if err != nil {
		return c.degrade(ctx, "budget limits "+budget.ID, err)
	}
	if len(limits) == 0 {
		return nil
	}

	chosen := limits[0].Attributes
	for _, l := range limits {
		if l.Attributes.CurrencyCode.String() == budget.Currency.Code {
			chosen = l.Attributes
			break
		}
	}
	budget.Limit = chosen.Amount.Value
	budget.LimitStart = parseTimePtr(chosen.Start.String())
	budget.LimitEnd = parseTimePtr(chosen.End.String())
	return nil
}
