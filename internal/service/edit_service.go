package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/repository"
	"github.com/openballot/openballot-api/pkg/config"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type editStore interface {
	Create(ctx context.Context, edit *models.Edit) error
	HasPending(ctx context.Context, userID string, entity models.EntityType, entityID, field string) (bool, error)
	CountPending(ctx context.Context, userID string) (int, error)
}

type fieldResolver interface {
	ResolveField(ctx context.Context, entity models.EntityType, entityID, field string) (repository.FieldValue, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EditService validates and persists community edit proposals.
type EditService struct {
	edits    editStore
	entities fieldResolver
	users    userFinder
	trust    *TrustPolicy
	audit    auditLogger
	logger   *zap.Logger
}

// NewEditService constructs the service.
func NewEditService(edits editStore, entities fieldResolver, users userFinder, trust *TrustPolicy, audit auditLogger, logger *zap.Logger) *EditService {
	if trust == nil {
		trust = NewTrustPolicy(config.TrustConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditService{edits: edits, entities: entities, users: users, trust: trust, audit: audit, logger: logger}
}

// Submit runs the validation sequence and creates a pending edit. Each
// check short-circuits with its own error kind so callers can surface
// actionable messages.
func (s *EditService) Submit(ctx context.Context, req dto.CreateEditRequest, actor *models.JWTClaims) (*models.Edit, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthenticated
	}

	entity := models.EntityType(strings.ToUpper(strings.TrimSpace(req.EntityType)))
	if !models.SupportedEntity(entity) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedEntity, fmt.Sprintf("unsupported entity type: %s", req.EntityType))
	}

	field := strings.ToLower(strings.TrimSpace(req.Field))
	entityID := strings.TrimSpace(req.EntityID)
	if entityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity_id is required")
	}
	if !models.FieldEditable(entity, field) {
		return nil, appErrors.Clone(appErrors.ErrFieldNotEditable, fmt.Sprintf("field %q of %s is not open for community edits", field, entity))
	}

	if strings.TrimSpace(req.Rationale) == "" {
		return nil, appErrors.ErrMissingRationale
	}

	newValue, err := normalizeValue(req.NewValue)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new_value must be valid JSON")
	}
	if newValue == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new_value is required")
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthenticated
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	pending, err := s.edits.CountPending(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending edits")
	}
	decision := s.trust.Evaluate(user, pending)
	if !decision.CanEdit {
		limited := appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("you have reached your pending edit limit (%d)", decision.MaxPending))
		return nil, appErrors.WithMeta(limited, map[string]interface{}{"ceiling": decision.MaxPending})
	}

	duplicate, err := s.edits.HasPending(ctx, user.ID, entity, entityID, field)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending edits")
	}
	if duplicate {
		return nil, appErrors.ErrDuplicatePending
	}

	value, err := s.entities.ResolveField(ctx, entity, entityID, field)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", strings.ToLower(string(entity)), entityID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current value")
	}
	current := value.Resolved()
	if current == newValue {
		return nil, appErrors.ErrNoChange
	}

	edit := &models.Edit{
		EntityType: entity,
		EntityID:   entityID,
		Field:      field,
		OldValue:   current,
		NewValue:   newValue,
		Rationale:  strings.TrimSpace(req.Rationale),
		Status:     models.EditStatusPending,
		UserID:     user.ID,
	}
	if err := s.edits.Create(ctx, edit); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.ErrDuplicatePending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create edit")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &edit.UserID,
		Action:     models.AuditActionEditCreate,
		Resource:   strings.ToLower(string(entity)),
		ResourceID: &edit.EntityID,
		NewValues:  mustJSON(map[string]string{"field": field, "new_value": newValue}),
	})
	return edit, nil
}

func (s *EditService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "edit-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// normalizeValue reduces any JSON value to its canonical string form:
// string payloads are unquoted, everything else is re-encoded compactly.
func normalizeValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}
	if str, ok := decoded.(string); ok {
		return strings.TrimSpace(str), nil
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func mustJSON(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return payload
}
