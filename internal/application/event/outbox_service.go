// Package event exposes outbox administration to operators: listing dead
// letter entries and sending them back for delivery.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"go.uber.org/zap"
)

// PermissionSystemAdmin gates outbox administration
const PermissionSystemAdmin = "system:admin"

// OutboxStatsCounter reports entry counts per status
type OutboxStatsCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// OutboxService lists and retries outbox entries
type OutboxService struct {
	repo   shared.OutboxRepository
	stats  OutboxStatsCounter
	logger *zap.Logger
}

// NewOutboxService creates an outbox service. stats may be nil.
func NewOutboxService(repo shared.OutboxRepository, stats OutboxStatsCounter, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, stats: stats, logger: logger}
}

// OutboxEntryDTO is the API view of an outbox entry. The payload is omitted.
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter pages through dead letter entries
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxStatsDTO counts entries per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns the actor tenant's dead letter entries, newest first
func (s *OutboxService) ListDead(ctx context.Context, actor shared.Actor, filter OutboxFilter) (*shared.Paginated[OutboxEntryDTO], error) {
	if err := actor.Require(PermissionSystemAdmin); err != nil {
		return nil, err
	}
	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = min(pageSize, 100)

	entries, total, err := s.repo.FindDead(ctx, actor.TenantID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to find dead letter entries", zap.Error(err))
		return nil, err
	}
	items := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		items[i] = toOutboxEntryDTO(entry)
	}
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// GetEntry returns one of the actor tenant's entries
func (s *OutboxService) GetEntry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OutboxEntryDTO, error) {
	if err := actor.Require(PermissionSystemAdmin); err != nil {
		return nil, err
	}
	entry, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry moves a dead letter entry back to pending. The ledger
// export handler is idempotent so a retried entry is never posted twice.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OutboxEntryDTO, error) {
	if err := actor.Require(PermissionSystemAdmin); err != nil {
		return nil, err
	}
	entry, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}

	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("user_id", actor.UserID.String()),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// Stats counts entries per status across all tenants
func (s *OutboxService) Stats(ctx context.Context, actor shared.Actor) (*OutboxStatsDTO, error) {
	if err := actor.Require(PermissionSystemAdmin); err != nil {
		return nil, err
	}
	if s.stats == nil {
		return nil, errors.New("outbox statistics are not available")
	}
	counts, err := s.stats.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		TenantID:      entry.TenantID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
