package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openballot/openballot-api/internal/dto"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/repository"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
)

type moderationStore interface {
	GetByID(ctx context.Context, id string) (*models.Edit, error)
	Approve(ctx context.Context, params repository.ReviewParams) error
	Reject(ctx context.Context, params repository.ReviewParams) error
}

// reviewPayload is the validated shape of a moderation decision.
type reviewPayload struct {
	Decision string `validate:"required,edit_decision"`
	Note     string `validate:"max=2000"`
}

// ModerationService transitions pending edits to their terminal states and
// applies approved values to the underlying entity.
type ModerationService struct {
	edits     moderationStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewModerationService constructs the service.
func NewModerationService(edits moderationStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ModerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ModerationService{edits: edits, audit: audit, validator: validate, logger: logger, now: time.Now}
	svc.validator.RegisterValidation("edit_decision", func(fl validator.FieldLevel) bool {
		switch models.EditStatus(fl.Field().String()) {
		case models.EditStatusApplied, models.EditStatusRejected:
			return true
		default:
			return false
		}
	})
	return svc
}

// Review records the moderator decision. APPROVED is accepted as an alias
// for APPLIED: approval writes the wiki override and finalises the edit in
// one transition, so there is no intermediate approved state.
func (s *ModerationService) Review(ctx context.Context, id string, req dto.ReviewEditRequest, actor *models.JWTClaims) (*models.Edit, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if !actor.Role.IsModerator() {
		return nil, appErrors.ErrForbidden
	}

	decision := models.EditStatus(strings.ToUpper(strings.TrimSpace(string(req.Decision))))
	if decision == "APPROVED" {
		decision = models.EditStatusApplied
	}
	if err := s.validator.Struct(reviewPayload{Decision: string(decision), Note: req.Note}); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}

	edit, err := s.edits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit")
	}
	if edit.Status != models.EditStatusPending {
		// Reviewing a reviewed edit is refused outright so counters are
		// never double-adjusted.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "edit not found or already reviewed")
	}

	now := s.now().UTC()
	params := repository.ReviewParams{
		Edit:        edit,
		ModeratorID: actor.UserID,
		ReviewedAt:  now,
		Note:        optionalString(req.Note),
	}

	switch decision {
	case models.EditStatusApplied:
		err = s.edits.Approve(ctx, params)
	case models.EditStatusRejected:
		err = s.edits.Reject(ctx, params)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edit not found or already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review")
	}

	edit.Status = decision
	edit.ModeratorID = &params.ModeratorID
	edit.ReviewedAt = &now
	edit.ModeratorNote = params.Note

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &params.ModeratorID,
		Action:     models.AuditActionEditReview,
		Resource:   strings.ToLower(string(edit.EntityType)),
		ResourceID: &edit.EntityID,
		OldValues:  mustJSON(map[string]string{"field": edit.Field, "old_value": edit.OldValue}),
		NewValues:  mustJSON(map[string]string{"field": edit.Field, "decision": string(decision), "new_value": edit.NewValue}),
	})
	return edit, nil
}

func (s *ModerationService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "moderation-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}
