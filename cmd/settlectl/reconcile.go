package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/bootstrap"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare account balances, payments and the journal",
	Long: `Builds the reconciliation report for one tenant. Without flags the report
is printed as JSON; --xlsx writes the workbook to a file and --archive uploads
it to the configured bucket.`,
	Example: `  settlectl reconcile --tenant 7b0c...
  settlectl reconcile --tenant 7b0c... --xlsx march.xlsx
  settlectl reconcile --tenant 7b0c... --archive`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	addTenantFlag(reconcileCmd)
	reconcileCmd.Flags().String("xlsx", "", "Write the report workbook to this path")
	reconcileCmd.Flags().Bool("archive", false, "Upload the workbook to object storage")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	actor, err := tenantActor(cmd)
	if err != nil {
		return err
	}
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	archive, _ := cmd.Flags().GetBool("archive")
	ctx := cmd.Context()

	return withContainer(ctx, func(c *bootstrap.Container) error {
		svc := c.Services.Reconciliation
		switch {
		case archive:
			resp, err := svc.Archive(ctx, actor)
			if err != nil {
				return err
			}
			fmt.Printf("archived to %s\n", resp.Location)
			return nil
		case xlsxPath != "":
			body, report, err := svc.ExportXLSX(ctx, actor)
			if err != nil {
				return err
			}
			if err := os.WriteFile(xlsxPath, body, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
			}
			fmt.Printf("wrote %s (drift=%d, missing journal=%d, unexported=%d)\n", xlsxPath,
				report.Summary.AccountsWithDrift, report.Summary.PaymentsWithoutJournal, report.Summary.UnexportedEntries)
			return nil
		default:
			report, err := svc.Report(ctx, actor)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
	})
}
