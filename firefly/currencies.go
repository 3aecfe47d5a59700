package firefly

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// Currencies fetches the currencies known to the server.
func (c *Client) Currencies(ctx context.Context, q interfaces.CurrencyQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeCurrencies)

	body, err := c.get(ctx, "/currencies", limitParams())
	if err != nil {
		return view, c.degrade(ctx, "currencies", err)
	}
	items, err := decodeResources[currencyAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "currencies", err)
	}

	ids := stringSet(q.IDs, strings.TrimSpace)
	for _, item := range items {
		if ids != nil && !ids[item.ID.String()] {
			continue
		}
		cur := currencyFromResource(item)
		if q.EnabledOnly && !cur.Enabled {
			continue
		}
		if err := view.Insert(cur); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping currency %q: %v", cur.ID, err)
		}
	}
	return view, nil
}
