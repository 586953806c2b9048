package main

import (
	"fmt"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/bootstrap"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Invoice maintenance",
}

var overdueSweepCmd = &cobra.Command{
	Use:   "overdue-sweep",
	Short: "Mark unpaid invoices past their due date as overdue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		actor, err := tenantActor(cmd)
		if err != nil {
			return err
		}
		return withContainer(cmd.Context(), func(c *bootstrap.Container) error {
			resp, err := c.Services.Invoices.MarkOverdue(cmd.Context(), actor)
			if err != nil {
				return err
			}
			fmt.Printf("marked %d invoice(s) overdue\n", resp.Marked)
			for _, id := range resp.InvoiceIDs {
				fmt.Printf("  %s\n", id)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(overdueSweepCmd)
	addTenantFlag(overdueSweepCmd)
}
