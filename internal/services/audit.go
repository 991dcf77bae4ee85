package services

import (
	"context"
	"time"

	"famli/internal/events"
	"famli/internal/logging"
	"famli/internal/models"

	"gorm.io/gorm"
)

const publishTimeout = 2 * time.Second

// AuditService appends to the audit trail. The trail is advisory: a failed
// write is logged and never fails the action being audited.
type AuditService struct {
	db        *gorm.DB
	publisher events.Publisher
	log       logging.Logger
}

func NewAuditService(db *gorm.DB, publisher events.Publisher, log logging.Logger) *AuditService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AuditService{db: db, publisher: publisher, log: log.With("component", "audit")}
}

// Record writes one entry attributed to actorID and forwards it to the
// event publisher. An actor that no longer exists is recorded as NULL.
func (s *AuditService) Record(ctx context.Context, actorID uint, action, entityType string, entityID uint, details models.JSONMap) {
	entry := &models.AuditEntry{
		UserID:     &actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	err := s.db.WithContext(ctx).Create(entry).Error
	if isForeignKeyViolation(err) {
		// the actor was deleted while its access token is still valid
		entry.ID = 0
		entry.UserID = nil
		err = s.db.WithContext(ctx).Create(entry).Error
	}
	if err != nil {
		s.log.Error(ctx, "failed to write audit entry",
			"action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
		return
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = s.publisher.PublishAudit(pctx, events.AuditEvent{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt,
	})
	if err != nil {
		s.log.Warn(ctx, "failed to publish audit event", "audit_id", entry.ID, "error", err)
	}
}

// AuditRow is an audit entry joined with the acting user's current name.
// Username is nil once that user has been deleted.
type AuditRow struct {
	ID         uint           `json:"id"`
	UserID     *uint          `json:"user_id"`
	Username   *string        `json:"username"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uint           `json:"entity_id"`
	Details    models.JSONMap `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

type AuditPage struct {
	Logs       []AuditRow `json:"logs"`
	Pagination Pagination `json:"pagination"`
}

// List returns entries newest first
func (s *AuditService) List(ctx context.Context, page PageRequest) (*AuditPage, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.AuditEntry{}).Count(&total).Error; err != nil {
		return nil, err
	}

	rows := make([]AuditRow, 0, page.Limit)
	err := db.Table("audit_log AS a").
		Select("a.id, a.user_id, u.username, a.action, a.entity_type, a.entity_id, a.details, a.created_at").
		Joins("LEFT JOIN users u ON a.user_id = u.id").
		Order("a.created_at DESC, a.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return &AuditPage{Logs: rows, Pagination: NewPagination(page, total)}, nil
}
