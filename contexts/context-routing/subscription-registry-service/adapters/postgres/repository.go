package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"contex/contexts/context-routing/subscription-registry-service/domain/entities"
	domainerrors "contex/contexts/context-routing/subscription-registry-service/domain/errors"
)

type registrationModel struct {
	ProjectID        string `gorm:"column:project_id;primaryKey"`
	AgentID          string `gorm:"column:agent_id;primaryKey"`
	Needs            string `gorm:"column:needs;type:jsonb"`
	DeliveryMode     string `gorm:"column:delivery_mode"`
	DeliveryChannel  string `gorm:"column:delivery_channel"`
	DeliveryURL      string `gorm:"column:delivery_url"`
	DeliveryHMAC     string `gorm:"column:delivery_hmac_secret"`
	LastSeenSequence int64  `gorm:"column:last_seen_sequence"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (registrationModel) TableName() string { return "agent_registrations" }

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

func (r *Repository) Register(ctx context.Context, reg entities.AgentRegistration) (entities.AgentRegistration, error) {
	row, err := toModel(reg)
	if err != nil {
		return entities.AgentRegistration{}, r.logError("subscription_register_failed", err, "project_id", reg.ProjectID, "agent_id", reg.AgentID)
	}

	err = r.db.WithContext(ctx).
		Where("project_id = ? AND agent_id = ?", reg.ProjectID, reg.AgentID).
		Assign(row).
		FirstOrCreate(&row).Error
	if err != nil {
		return entities.AgentRegistration{}, r.logError("subscription_register_failed", err, "project_id", reg.ProjectID, "agent_id", reg.AgentID)
	}
	return fromModel(row)
}

func (r *Repository) Unregister(ctx context.Context, projectID, agentID string) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND agent_id = ?", projectID, agentID).
		Delete(&registrationModel{}).Error
	if err != nil {
		return r.logError("subscription_unregister_failed", err, "project_id", projectID, "agent_id", agentID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, projectID, agentID string) (entities.AgentRegistration, error) {
	var row registrationModel
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND agent_id = ?", projectID, agentID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.AgentRegistration{}, domainerrors.ErrRegistrationNotFound
	}
	if err != nil {
		return entities.AgentRegistration{}, r.logError("subscription_get_failed", err, "project_id", projectID, "agent_id", agentID)
	}
	return fromModel(row)
}

func (r *Repository) List(ctx context.Context, projectID string) ([]entities.AgentRegistration, error) {
	var rows []registrationModel
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&rows).Error
	if err != nil {
		return nil, r.logError("subscription_list_failed", err, "project_id", projectID)
	}
	out := make([]entities.AgentRegistration, 0, len(rows))
	for _, row := range rows {
		reg, err := fromModel(row)
		if err != nil {
			return nil, r.logError("subscription_list_decode_failed", err, "project_id", projectID)
		}
		out = append(out, reg)
	}
	return out, nil
}

func (r *Repository) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	err := r.db.WithContext(ctx).
		Model(&registrationModel{}).
		Where("project_id = ? AND agent_id = ?", projectID, agentID).
		Updates(map[string]any{"last_seen_sequence": sequence, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return r.logError("subscription_update_sequence_failed", err, "project_id", projectID, "agent_id", agentID)
	}
	return nil
}

func (r *Repository) ExpireIdle(ctx context.Context, olderThan time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", olderThan).
		Delete(&registrationModel{})
	if result.Error != nil {
		return 0, r.logError("subscription_idle_expiry_failed", result.Error)
	}
	return int(result.RowsAffected), nil
}

func toModel(reg entities.AgentRegistration) (registrationModel, error) {
	needs, err := json.Marshal(reg.Needs)
	if err != nil {
		return registrationModel{}, err
	}
	return registrationModel{
		ProjectID:        reg.ProjectID,
		AgentID:          reg.AgentID,
		Needs:            string(needs),
		DeliveryMode:     string(reg.Delivery.Mode),
		DeliveryChannel:  reg.Delivery.Channel,
		DeliveryURL:      reg.Delivery.URL,
		DeliveryHMAC:     reg.Delivery.HMACSecret,
		LastSeenSequence: reg.LastSeenSequence,
		CreatedAt:        reg.CreatedAt,
		UpdatedAt:        reg.UpdatedAt,
	}, nil
}

func fromModel(row registrationModel) (entities.AgentRegistration, error) {
	var needs []string
	if err := json.Unmarshal([]byte(row.Needs), &needs); err != nil {
		return entities.AgentRegistration{}, err
	}
	return entities.AgentRegistration{
		AgentID:   row.AgentID,
		ProjectID: row.ProjectID,
		Needs:     needs,
		Delivery: entities.Delivery{
			Mode:       entities.DeliveryMode(row.DeliveryMode),
			Channel:    row.DeliveryChannel,
			URL:        row.DeliveryURL,
			HMACSecret: row.DeliveryHMAC,
		},
		LastSeenSequence: row.LastSeenSequence,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "subscription-registry-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("subscription registry operation failed", fields...)
	return err
}
