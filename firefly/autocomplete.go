package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
)

// SuggestionLimit caps autocomplete results.
const SuggestionLimit = 100

// AccountSuggestions lists accounts matching query, optionally narrowed
// to the given account types. Used to pick account filters.
func (c *Client) AccountSuggestions(ctx context.Context, query string, types []string) ([]models.Suggestion, error) {
	items, err := c.autocomplete(ctx, "/autocomplete/accounts", query)
	if err != nil {
		return nil, err
	}

	allowed := stringSet(types, func(s string) string { return string(NormalizeAccountType(s)) })
	out := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		accountType := NormalizeAccountType(item.Type.String())
		if allowed != nil && !allowed[string(accountType)] {
			continue
		}
		label := item.NameWithBalance.String()
		if label == "" {
			label = item.Name.String()
		}
		out = append(out, models.Suggestion{
			ID:    item.ID.String(),
			Name:  item.Name.String(),
			Label: label,
			Type:  string(accountType),
		})
	}
	return out, nil
}

// CategorySuggestions lists categories matching query.
func (c *Client) CategorySuggestions(ctx context.Context, query string) ([]models.Suggestion, error) {
	items, err := c.autocomplete(ctx, "/autocomplete/categories", query)
	if err != nil {
		return nil, err
	}

	out := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		out = append(out, models.Suggestion{
			ID:    item.ID.String(),
			Name:  item.Name.String(),
			Label: item.Name.String(),
		})
	}
	return out, nil
}

// autocomplete endpoints return a bare array rather than a data envelope.
func (c *Client) autocomplete(ctx context.Context, path, query string) ([]autocompleteItem, error) {
	params := url.Values{"limit": {strconv.Itoa(SuggestionLimit)}}
	if query != "" {
		params.Set("query", query)
	}
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("%w: expected a list", ErrMalformedResponse)
	}
	var items tolerantList[autocompleteItem]
	if err := items.UnmarshalJSON(body); err != nil {
		return nil, err
	}

	out := items[:0]
	for _, item := range items {
		if item.ID != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
