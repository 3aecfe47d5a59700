package cli_cmds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/firefly"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/spf13/cobra"
)

// fetchable lists the types fetch accepts, in help order.
var fetchable = []models.ObjectType{
	models.TypeAbout,
	models.TypePreferences,
	models.TypeAccounts,
	models.TypeCategories,
	models.TypeBills,
	models.TypeBudgets,
	models.TypePiggyBanks,
	models.TypeCurrencies,
	models.TypeTransactions,
}

// NewFetch creates a command that fetches one object type for the
// current range and prints it as JSON
func NewFetch(params *cli.CmdParams) *cobra.Command {
	var limit int

	names := make([]string, len(fetchable))
	for i, t := range fetchable {
		names[i] = string(t)
	}

	fetchCmd := &cobra.Command{
		Use:       "fetch <type>",
		Short:     "Fetch one object type and print it as JSON",
		Long:      "Fetch one object type for the configured range. Types: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := models.ParseObjectType(args[0])
			if !ok {
				return fmt.Errorf("unknown type %q, expected one of %s", args[0], strings.Join(names, ", "))
			}

			a, err := newApp(cmd.Context(), params, false)
			if err != nil {
				return err
			}

			rng := a.coordinator.ResolveRange(cmd.Context(), time.Now())
			agg, err := fetchType(cmd.Context(), a, a.client.ForRange(&rng), t, limit)
			if err != nil {
				return err
			}

			if single := agg.Singleton(t); single.ObjectType() != models.TypeNone {
				return writeJSON(cmd.OutOrStdout(), single)
			}
			if !agg.Has(t) {
				return writeJSON(cmd.OutOrStdout(), models.Empty{})
			}
			return writeJSON(cmd.OutOrStdout(), agg.Collection(t))
		},
	}

	fetchCmd.Flags().IntVar(&limit, "limit", 25, "Maximum transactions to fetch")
	fetchCmd.AddCommand(newFetchSuggest(params))

	return fetchCmd
}

func fetchType(ctx context.Context, a *app, client *firefly.Client, t models.ObjectType, limit int) (*models.Aggregate, error) {
	ret := a.config.Return
	switch t {
	case models.TypeAbout:
		return client.About(ctx)
	case models.TypePreferences:
		return client.Preferences(ctx)
	case models.TypeAccounts:
		return client.Accounts(ctx, interfaces.AccountQuery{
			Types:            ret.AccountTypes,
			IDs:              ret.AccountIDs,
			TransactionLimit: ret.AccountTransactions,
		})
	case models.TypeCategories:
		return client.Categories(ctx, interfaces.CategoryQuery{IDs: ret.CategoryIDs, Currency: ret.Currency})
	case models.TypeBills:
		return client.Bills(ctx)
	case models.TypeBudgets:
		return client.Budgets(ctx, ret.Currency)
	case models.TypePiggyBanks:
		return client.PiggyBanks(ctx)
	case models.TypeCurrencies:
		return client.Currencies(ctx, interfaces.CurrencyQuery{})
	case models.TypeTransactions:
		return client.Transactions(ctx, interfaces.TransactionQuery{Limit: limit})
	default:
		return nil, fmt.Errorf("type %q cannot be fetched on its own", t)
	}
}

func newFetchSuggest(params *cli.CmdParams) *cobra.Command {
	var types []string

	suggestCmd := &cobra.Command{
		Use:   "suggest <accounts|categories> [query]",
		Short: "List autocomplete suggestions for account or category filters",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}

			a, err := newApp(cmd.Context(), params, false)
			if err != nil {
				return err
			}

			var suggestions []models.Suggestion
			switch strings.ToLower(args[0]) {
			case "accounts", "account":
				suggestions, err = a.client.AccountSuggestions(cmd.Context(), query, types)
			case "categories", "category":
				suggestions, err = a.client.CategorySuggestions(cmd.Context(), query)
			default:
				return fmt.Errorf("unknown suggestion kind %q, expected accounts or categories", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range suggestions {
				fmt.Fprintf(out, "%s\t%s\n", s.ID, s.Label)
			}
			return nil
		},
	}

	suggestCmd.Flags().StringSliceVar(&types, "type", nil, "Account types to suggest, e.g. asset,expense")

	return suggestCmd
}
