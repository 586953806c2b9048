// Command settlectl is the operator CLI for the settlement service: it
// issues and revokes access tokens, runs migrations, sweeps overdue invoices
// and exports reconciliation reports.
package main

func main() {
	Execute()
}
