package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTenants struct {
	ids []uuid.UUID
	err error
}

func (s staticTenants) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

// MockOverdueMarker is a mock implementation of OverdueMarker
type MockOverdueMarker struct {
	mock.Mock
}

func (m *MockOverdueMarker) MarkOverdue(ctx context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error) {
	args := m.Called(ctx, actor.TenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.OverdueSweepResponse), args.Error(1)
}

// MockReportArchiver is a mock implementation of ReportArchiver
type MockReportArchiver struct {
	mock.Mock
}

func (m *MockReportArchiver) Archive(ctx context.Context, actor shared.Actor) (*settlementapp.ArchiveResponse, error) {
	args := m.Called(ctx, actor.TenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.ArchiveResponse), args.Error(1)
}

type collectorFunc func(ctx context.Context, tenants telemetry.TenantProvider) error

func (f collectorFunc) CollectLedgerMetrics(ctx context.Context, tenants telemetry.TenantProvider) error {
	return f(ctx, tenants)
}

func TestOverdueSweepJob(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	marker := new(MockOverdueMarker)
	marker.On("MarkOverdue", mock.Anything, a).Return(&settlementapp.OverdueSweepResponse{Marked: 2}, nil)
	marker.On("MarkOverdue", mock.Anything, b).Return(nil, errors.New("lock timeout"))
	marker.On("MarkOverdue", mock.Anything, c).Return(&settlementapp.OverdueSweepResponse{}, nil)

	job := NewOverdueSweepJob(marker, staticTenants{ids: []uuid.UUID{a, b, c}}, zap.NewNop())
	assert.Equal(t, JobOverdueSweep, job.Name())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), b.String())
	assert.Contains(t, err.Error(), "lock timeout")
	// the failing tenant does not stop the next one
	marker.AssertNumberOfCalls(t, "MarkOverdue", 3)
}

func TestOverdueSweepJob_UsesSystemActor(t *testing.T) {
	tenant := uuid.New()
	var seen shared.Actor
	marker := markerFunc(func(_ context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error) {
		seen = actor
		return &settlementapp.OverdueSweepResponse{}, nil
	})

	require.NoError(t, NewOverdueSweepJob(marker, staticTenants{ids: []uuid.UUID{tenant}}, zap.NewNop()).Run(context.Background()))
	assert.Equal(t, tenant, seen.TenantID)
	assert.True(t, seen.HasPermission(settlementapp.PermissionInvoiceUpdate))
}

type markerFunc func(ctx context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error)

func (f markerFunc) MarkOverdue(ctx context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error) {
	return f(ctx, actor)
}

func TestOverdueSweepJob_TenantListFails(t *testing.T) {
	marker := new(MockOverdueMarker)
	job := NewOverdueSweepJob(marker, staticTenants{err: errors.New("db down")}, zap.NewNop())

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "failed to list tenants")
	marker.AssertNotCalled(t, "MarkOverdue", mock.Anything, mock.Anything)
}

func TestReconciliationArchiveJob(t *testing.T) {
	clean, dirty := uuid.New(), uuid.New()
	archiver := new(MockReportArchiver)
	archiver.On("Archive", mock.Anything, clean).Return(&settlementapp.ArchiveResponse{Location: "s3://reports/a.xlsx"}, nil)
	archiver.On("Archive", mock.Anything, dirty).Return(&settlementapp.ArchiveResponse{
		Location: "s3://reports/b.xlsx",
		Summary:  settlementapp.ReconciliationSummary{AccountsWithDrift: 1},
	}, nil)

	job := NewReconciliationArchiveJob(archiver, staticTenants{ids: []uuid.UUID{clean, dirty}}, zap.NewNop())
	assert.Equal(t, JobReconciliationArchive, job.Name())
	require.NoError(t, job.Run(context.Background()))
	archiver.AssertExpectations(t)
}

func TestLedgerMetricsJob(t *testing.T) {
	tenants := staticTenants{ids: []uuid.UUID{uuid.New()}}
	called := false
	job := NewLedgerMetricsJob(collectorFunc(func(_ context.Context, got telemetry.TenantProvider) error {
		called = true
		assert.Equal(t, tenants, got)
		return nil
	}), tenants)

	assert.Equal(t, JobLedgerMetrics, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, called)
}

func TestForEachTenant_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := forEachTenant(ctx, staticTenants{ids: []uuid.UUID{uuid.New(), uuid.New()}}, func(context.Context, shared.Actor) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
