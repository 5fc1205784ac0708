package main

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/payments/flow"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage products",
	}
	cmd.AddCommand(catalogAddCmd(a), catalogActiveCmd(a, "activate", true), catalogActiveCmd(a, "deactivate", false))
	return cmd
}

// parsePrice reads a major-unit amount ("9990", "19.90") into minor units
// and rejects more decimals than the currency has.
func parsePrice(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid price %q: negative", s)
	}
	cents := flow.Cents(d, currency)
	if !flow.Amount(cents, currency).Equal(d) {
		return 0, fmt.Errorf("invalid price %q: too many decimals for %s", s, currency)
	}
	return cents, nil
}

func translations(names, descriptions map[string]string) map[string]catalog.Translation {
	out := make(map[string]catalog.Translation, len(names))
	for l, n := range names {
		out[strings.ToLower(l)] = catalog.Translation{Name: n, Description: descriptions[l]}
	}
	return out
}

func catalogAddCmd(a *app) *cobra.Command {
	var (
		sku, price, currency string
		names, descriptions  map[string]string
		qty                  int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product with its stock",
		Example: `  storectl catalog add --sku TEE-01 --price 9990 \
    --name es="Polera roja",en="Red tee" --qty 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if currency == "" {
				currency = a.cfg.Currency
			}
			cents, err := parsePrice(price, currency)
			if err != nil {
				return err
			}
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &catalog.Repo{DB: db}
			p, err := repo.Create(cmd.Context(), catalog.NewProduct{
				SKU:           sku,
				PriceCents:    cents,
				Currency:      strings.ToUpper(currency),
				DefaultLocale: a.cfg.DefaultLocale,
				Translations:  translations(names, descriptions),
				Quantity:      qty,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) slug=%s\n", p.SKU, p.ID, p.Slug)
			return nil
		},
	}
	cmd.Flags().StringVar(&sku, "sku", "", "product sku")
	cmd.Flags().StringVar(&price, "price", "", "price in major units")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency (default from CURRENCY)")
	cmd.Flags().StringToStringVar(&names, "name", nil, "names per locale, e.g. es=Polera,en=Tee")
	cmd.Flags().StringToStringVar(&descriptions, "description", nil, "descriptions per locale")
	cmd.Flags().IntVar(&qty, "qty", 0, "initial stock")
	_ = cmd.MarkFlagRequired("sku")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func catalogActiveCmd(a *app, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [sku]",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := (&catalog.Repo{DB: db}).SetActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: active=%t\n", args[0], active)
			return nil
		},
	}
}
