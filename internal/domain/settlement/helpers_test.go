package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testActor() shared.Actor {
	return shared.Actor{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Username:    "cashier",
		Permissions: []string{shared.WildcardPermission},
	}
}

func newTestInvoice(t *testing.T, amount, paid string, direction FlowDirection) *Invoice {
	t.Helper()
	inv, err := NewInvoice(testActor(), NewInvoiceParams{
		InvoiceNumber: "INV-0001",
		CustomerID:    uuid.New(),
		CustomerName:  "Kilimanjaro Traders",
		Direction:     direction,
		Currency:      "USD",
		Amount:        d(amount),
	})
	require.NoError(t, err)
	inv.AmountPaid = d(paid)
	inv.ClearDomainEvents()
	return inv
}
