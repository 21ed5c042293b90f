package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"contex/contexts/context-routing/event-log-service/domain/entities"
)

type eventModel struct {
	ProjectID string          `gorm:"column:project_id;primaryKey"`
	Sequence  int64           `gorm:"column:sequence;primaryKey"`
	TenantID  string          `gorm:"column:tenant_id"`
	EventType string          `gorm:"column:event_type"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (eventModel) TableName() string { return "events" }

type sequenceCounterModel struct {
	ProjectID string `gorm:"column:project_id;primaryKey"`
	Value     int64  `gorm:"column:value"`
}

func (sequenceCounterModel) TableName() string { return "event_sequence_counters" }

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Append allocates the next sequence for project_id by locking (and, on
// first use, creating) its counter row, mirroring event_store.py's
// max(sequence)+1 allocation but made safe under concurrency with
// SELECT ... FOR UPDATE instead of a read-then-write race.
func (r *Repository) Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (entities.Event, error) {
	var event entities.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter sequenceCounterModel
		err := tx.Raw(
			"SELECT project_id, value FROM event_sequence_counters WHERE project_id = ? FOR UPDATE",
			projectID,
		).Scan(&counter).Error
		if err != nil {
			return err
		}

		if counter.ProjectID == "" {
			counter = sequenceCounterModel{ProjectID: projectID, Value: 0}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		}

		nextSeq := counter.Value + 1
		if err := tx.Model(&sequenceCounterModel{}).
			Where("project_id = ?", projectID).
			Update("value", nextSeq).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		row := eventModel{
			ProjectID: projectID,
			Sequence:  nextSeq,
			TenantID:  tenantID,
			EventType: eventType,
			Payload:   payload,
			CreatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		event = entities.Event{
			ProjectID: projectID,
			TenantID:  tenantID,
			EventType: eventType,
			Payload:   payload,
			Sequence:  nextSeq,
			CreatedAt: now,
		}
		return nil
	})
	if err != nil {
		return entities.Event{}, r.logError("event_log_append_failed", err, "project_id", projectID)
	}
	return event, nil
}

func (r *Repository) Read(ctx context.Context, projectID string, since int64, limit int) ([]entities.Event, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND sequence > ?", projectID, since).
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("event_log_read_failed", err, "project_id", projectID)
	}

	events := make([]entities.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, entities.Event{
			ProjectID: row.ProjectID,
			TenantID:  row.TenantID,
			EventType: row.EventType,
			Payload:   row.Payload,
			Sequence:  row.Sequence,
			CreatedAt: row.CreatedAt,
		})
	}
	return events, nil
}

func (r *Repository) Length(ctx context.Context, projectID string) (int64, error) {
	var counter sequenceCounterModel
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.logError("event_log_length_failed", err, "project_id", projectID)
	}
	return counter.Value, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "event-log-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("event log repository operation failed", fields...)
	return err
}
