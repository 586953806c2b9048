package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testActor(tenantID uuid.UUID, permissions ...string) shared.Actor {
	if len(permissions) == 0 {
		permissions = []string{shared.WildcardPermission}
	}
	return shared.Actor{
		UserID:      uuid.New(),
		TenantID:    tenantID,
		Username:    "cashier",
		Permissions: permissions,
		RequestID:   "req-test",
	}
}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

// seedRates stores USD=2500 and CNY=350 against TZS
func seedRates(t *testing.T, store *memStore, tenantID uuid.UUID) {
	t.Helper()
	for code, rate := range map[string]string{"USD": "2500", "CNY": "350"} {
		r, err := settlement.NewExchangeRate(tenantID, code, d(rate), testNow.Add(-time.Hour))
		require.NoError(t, err)
		store.rates = append(store.rates, *r)
	}
}

func seedAccount(t *testing.T, store *memStore, actor shared.Actor, name, currency, code, opening string) *settlement.BankAccount {
	t.Helper()
	a, err := settlement.NewBankAccount(actor, name, "0150-"+code, currency, code, d(opening))
	require.NoError(t, err)
	store.putAccount(a)
	return a
}

func seedInvoice(t *testing.T, store *memStore, actor shared.Actor, number, currency, amount string, direction settlement.FlowDirection) *settlement.Invoice {
	t.Helper()
	due := testNow.Add(7 * 24 * time.Hour)
	inv, err := settlement.NewInvoice(actor, settlement.NewInvoiceParams{
		InvoiceNumber: number,
		CustomerID:    uuid.New(),
		CustomerName:  "Kariakoo Imports",
		Direction:     direction,
		Currency:      currency,
		Amount:        d(amount),
		DueDate:       &due,
	})
	require.NoError(t, err)
	store.putInvoice(inv)
	return inv
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ shared.IdempotencyStore = (*MockIdempotencyStore)(nil)

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}
