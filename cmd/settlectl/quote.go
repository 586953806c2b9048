package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/bootstrap"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a shipment against the tenant's charge and exchange rates",
	Example: `  settlectl quote --tenant 7b0c... --cost 200 --currency USD --weight 10 \
      --category electronics --region china --region dubai`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	addTenantFlag(quoteCmd)
	quoteCmd.Flags().String("cost", "0", "Product cost")
	quoteCmd.Flags().String("currency", "USD", "Currency of the product cost")
	quoteCmd.Flags().String("weight", "0", "Shipment weight in kg")
	quoteCmd.Flags().String("category", "", "Product category")
	quoteCmd.Flags().StringSlice("region", nil, "Origin region (repeatable)")
	_ = quoteCmd.MarkFlagRequired("category")
	_ = quoteCmd.MarkFlagRequired("region")
}

func runQuote(cmd *cobra.Command, _ []string) error {
	actor, err := tenantActor(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	costRaw, _ := flags.GetString("cost")
	weightRaw, _ := flags.GetString("weight")
	currency, _ := flags.GetString("currency")
	category, _ := flags.GetString("category")
	regions, _ := flags.GetStringSlice("region")

	cost, err := decimal.NewFromString(costRaw)
	if err != nil {
		return fmt.Errorf("invalid --cost %q: %w", costRaw, err)
	}
	weight, err := decimal.NewFromString(weightRaw)
	if err != nil {
		return fmt.Errorf("invalid --weight %q: %w", weightRaw, err)
	}

	req := settlement.QuoteRequest{
		ProductCost: cost,
		Currency:    strings.ToUpper(currency),
		WeightKg:    weight,
		Category:    category,
		Regions:     regions,
	}
	ctx := cmd.Context()
	return withContainer(ctx, func(c *bootstrap.Container) error {
		resp, err := c.Services.Quotes.Quote(ctx, actor, req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	})
}
