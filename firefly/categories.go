package firefly

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"golang.org/x/sync/errgroup"
)

// Categories fetches categories with spent and earned totals over the
// bound range in the query currency.
func (c *Client) Categories(ctx context.Context, q interfaces.CategoryQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeCategories)

	cur, err := c.targetCurrency(ctx, q.Currency)
	if err != nil {
		return view, err
	}

	body, err := c.get(ctx, "/categories", limitParams())
	if err != nil {
		return view, c.degrade(ctx, "categories", err)
	}
	items, err := decodeResources[categoryAttributes](body)
	if err != nil {
		return view, c.degrade(ctx, "categories", err)
	}

	ids := stringSet(q.IDs, strings.TrimSpace)
	selected := items[:0]
	for _, item := range items {
		if ids == nil || ids[item.ID.String()] {
			selected = append(selected, item)
		}
	}

	categories := make([]*models.Category, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, item := range selected {
		g.Go(func() error {
			cat, err := c.buildCategory(gctx, item, cur)
			if err != nil {
				return err
			}
			categories[i] = cat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return view, err
	}

	for _, cat := range categories {
		if cat == nil {
			continue
		}
		if err := view.Insert(cat); err != nil {
			c.logger.Warn(internal.ComponentFirefly, "Skipping category %q: %v", cat.ID, err)
		}
	}
	return view, nil
}

// buildCategory reads the range-scoped detail. A failed detail request
// falls back to the totals of the list item.
func (c *Client) buildCategory(ctx context.Context, item resource[categoryAttributes], cur models.Currency) (*models.Category, error) {
	attrs := item.Attributes

	body, err := c.get(ctx, "/categories/"+url.PathEscape(item.ID.String()), rangeParams(nil, c.rng))
	if err == nil {
		var detail resource[categoryAttributes]
		detail, err = decodeSingleResource[categoryAttributes](body)
		if err == nil {
			attrs = detail.Attributes
		}
	}
	if err := c.degrade(ctx, "category "+item.ID.String(), err); err != nil {
		return nil, err
	}

	name := attrs.Name.String()
	if name == "" {
		name = item.Attributes.Name.String()
	}
	return &models.Category{
		ID:       item.ID.String(),
		Name:     name,
		Currency: cur,
		Balance:  attrs.CurrentBalance.Value,
		Spent:    sumFor(attrs.Spent, cur.Code),
		Earned:   sumFor(attrs.Earned, cur.Code),
	}, nil
}
