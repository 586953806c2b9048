package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOutboxRepository keeps entries in memory
type mockOutboxRepository struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]*shared.OutboxEntry
	findErr   error
	updateErr error
	deleted   []time.Time
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *mockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *mockOutboxRepository) filter(limit int, keep func(*shared.OutboxEntry) bool) []*shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.filter(limit, func(e *shared.OutboxEntry) bool { return e.Status == shared.OutboxStatusPending }), nil
}

func (r *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return r.filter(limit, func(e *shared.OutboxEntry) bool {
		return e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(before)
	}), nil
}

func (r *mockOutboxRepository) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	out := r.filter(0, func(e *shared.OutboxEntry) bool { return e.TenantID == tenantID && e.IsDead() })
	return out, int64(len(out)), nil
}

func (r *mockOutboxRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok && e.Status != shared.OutboxStatusProcessing {
			e.Status = shared.OutboxStatusProcessing
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *mockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *mockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, before)
	return 0, nil
}

func (r *mockOutboxRepository) entry(id uuid.UUID) shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.entries[id]
}

func newProcessorFixture(t *testing.T) (*mockOutboxRepository, *InMemoryEventBus, *EventSerializer) {
	t.Helper()
	serializer := NewEventSerializer()
	RegisterSettlementEvents(serializer)
	return newMockOutboxRepository(), NewInMemoryEventBus(zap.NewNop()), serializer
}

func saveInvoiceCreated(t *testing.T, repo *mockOutboxRepository, serializer *EventSerializer, maxRetries int) *shared.OutboxEntry {
	t.Helper()
	event := settlement.NewInvoiceCreatedEvent(newTestInvoice(t, uuid.New()))
	payload, err := serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload, maxRetries)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_ProcessOnce_Delivers(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	handler := newTestHandler(settlement.EventInvoiceCreated)
	bus.Subscribe(handler)
	entry := saveInvoiceCreated(t, repo, serializer, 5)

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	assert.Equal(t, 1, processor.ProcessOnce(context.Background()))

	require.Len(t, handler.getHandled(), 1)
	delivered, ok := handler.getHandled()[0].(*settlement.InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, entry.EventID, delivered.EventID())

	stored := repo.entry(entry.ID)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	assert.Zero(t, processor.ProcessOnce(context.Background()), "sent entries are not redelivered")
}

func TestOutboxProcessor_ProcessOnce_FailureSchedulesRetry(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	handler := newTestHandler(settlement.EventInvoiceCreated)
	handler.setError(errors.New("sink unavailable"))
	bus.Subscribe(handler)
	entry := saveInvoiceCreated(t, repo, serializer, 5)

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	assert.Zero(t, processor.ProcessOnce(context.Background()))

	stored := repo.entry(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "sink unavailable")
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
}

func TestOutboxProcessor_ProcessOnce_RetriesDueEntries(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	handler := newTestHandler(settlement.EventInvoiceCreated)
	bus.Subscribe(handler)
	entry := saveInvoiceCreated(t, repo, serializer, 5)
	entry.MarkFailed("previous attempt")
	past := time.Now().Add(-time.Second)
	entry.NextRetryAt = &past

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	assert.Equal(t, 1, processor.ProcessOnce(context.Background()))
	assert.Equal(t, shared.OutboxStatusSent, repo.entry(entry.ID).Status)
}

func TestOutboxProcessor_ProcessOnce_DeadLettersAfterMaxRetries(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	handler := newTestHandler(settlement.EventInvoiceCreated)
	handler.setError(errors.New("sink unavailable"))
	bus.Subscribe(handler)
	entry := saveInvoiceCreated(t, repo, serializer, 1)

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	processor.ProcessOnce(context.Background())

	stored := repo.entry(entry.ID)
	assert.True(t, stored.IsDead())
	assert.Nil(t, stored.NextRetryAt)

	dead, total, err := repo.FindDead(context.Background(), entry.TenantID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entry.ID, dead[0].ID)
}

func TestOutboxProcessor_ProcessOnce_UnknownEventType(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	event := newTestEvent("UnregisteredEvent", uuid.New())
	entry := shared.NewOutboxEntry(event, []byte(`{}`), 5)
	require.NoError(t, repo.Save(context.Background(), entry))

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	assert.Zero(t, processor.ProcessOnce(context.Background()))

	stored := repo.entry(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")
}

func TestOutboxProcessor_ProcessOnce_FindError(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	repo.findErr = errors.New("connection refused")

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop(), nil)
	assert.Zero(t, processor.ProcessOnce(context.Background()))
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	repo, bus, serializer := newProcessorFixture(t)
	handler := newTestHandler(settlement.EventInvoiceCreated)
	bus.Subscribe(handler)
	saveInvoiceCreated(t, repo, serializer, 5)

	processor := NewOutboxProcessor(repo, bus, serializer, OutboxProcessorConfig{
		BatchSize:        10,
		PollInterval:     10 * time.Millisecond,
		CleanupEnabled:   true,
		CleanupRetention: time.Hour,
		CleanupInterval:  10 * time.Millisecond,
	}, zap.NewNop(), nil)
	processor.Start(context.Background())

	assert.Eventually(t, func() bool { return len(handler.getHandled()) == 1 }, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.NotEmpty(t, repo.deleted)
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	config := DefaultOutboxProcessorConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.True(t, config.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, config.CleanupRetention)
	assert.Equal(t, time.Hour, config.CleanupInterval)
}

var _ shared.OutboxRepository = (*mockOutboxRepository)(nil)
