package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openballot/openballot-api/internal/models"
)

const editColumns = `id, entity_type, entity_id, field, old_value, new_value, rationale,
       status, user_id, moderator_id, moderator_note, created_at, reviewed_at`

const editJoinColumns = `e.id, e.entity_type, e.entity_id, e.field, e.old_value, e.new_value, e.rationale,
       e.status, e.user_id, e.moderator_id, e.moderator_note, e.created_at, e.reviewed_at,
       u.public_id AS submitter_public_id, u.display_name AS submitter_name, u.email AS submitter_email`

// EditRepository persists edit proposals and owns the transactional
// boundaries of the workflow: a submission and its counter bump, or a review
// with its entity write, supersessions, and counter updates, each commit as
// one unit.
type EditRepository struct {
	db *sqlx.DB
}

// NewEditRepository constructs the repository.
func NewEditRepository(db *sqlx.DB) *EditRepository {
	return &EditRepository{db: db}
}

// IsUniqueViolation reports whether the error stems from a Postgres unique
// constraint, which the partial index on pending edits raises when two
// submissions race for the same (user, entity, field) tuple.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Create inserts a pending edit and increments the submitter's pending
// counter in one transaction.
func (r *EditRepository) Create(ctx context.Context, edit *models.Edit) error {
	if edit.ID == "" {
		edit.ID = uuid.NewString()
	}
	if edit.Status == "" {
		edit.Status = models.EditStatusPending
	}
	if edit.CreatedAt.IsZero() {
		edit.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create edit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO edits
	(id, entity_type, entity_id, field, old_value, new_value, rationale, status, user_id, moderator_id, moderator_note, created_at, reviewed_at)
	VALUES (:id, :entity_type, :entity_id, :field, :old_value, :new_value, :rationale, :status, :user_id, :moderator_id, :moderator_note, :created_at, :reviewed_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, edit); err != nil {
		return fmt.Errorf("create edit: %w", err)
	}

	const counterQuery = `UPDATE users SET edits_pending = edits_pending + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQuery, edit.UserID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment pending counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create edit: %w", err)
	}
	return nil
}

// GetByID fetches an edit by identifier.
func (r *EditRepository) GetByID(ctx context.Context, id string) (*models.Edit, error) {
	query := fmt.Sprintf("SELECT %s FROM edits WHERE id = $1", editColumns)
	var edit models.Edit
	if err := r.db.GetContext(ctx, &edit, query, id); err != nil {
		return nil, err
	}
	return &edit, nil
}

// GetWithSubmitter fetches an edit joined with the submitter's public
// identity.
func (r *EditRepository) GetWithSubmitter(ctx context.Context, id string) (*models.EditWithSubmitter, error) {
	query := fmt.Sprintf("SELECT %s FROM edits e JOIN users u ON u.id = e.user_id WHERE e.id = $1", editJoinColumns)
	var edit models.EditWithSubmitter
	if err := r.db.GetContext(ctx, &edit, query, id); err != nil {
		return nil, err
	}
	return &edit, nil
}

// List returns edits matching the filter, newest first, joined with the
// submitter's public identity. The page size is capped at 50.
func (r *EditRepository) List(ctx context.Context, filter models.EditFilter) ([]models.EditWithSubmitter, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("e.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("e.entity_type = $%d", len(args)))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("e.entity_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)))
	}
	if filter.ModeratorID != "" {
		args = append(args, filter.ModeratorID)
		conditions = append(conditions, fmt.Sprintf("e.moderator_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf("SELECT %s FROM edits e JOIN users u ON u.id = e.user_id%s ORDER BY e.created_at DESC LIMIT %d OFFSET %d",
		editJoinColumns, where, limit, offset)

	var edits []models.EditWithSubmitter
	if err := r.db.SelectContext(ctx, &edits, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list edits: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM edits e%s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count edits: %w", err)
	}

	return edits, total, nil
}

// HasPending reports whether the user already has a pending edit for the
// same (entity, field) tuple.
func (r *EditRepository) HasPending(ctx context.Context, userID string, entity models.EntityType, entityID, field string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM edits WHERE user_id = $1 AND entity_type = $2 AND entity_id = $3 AND field = $4 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, entity, entityID, field); err != nil {
		return false, fmt.Errorf("check pending edit: %w", err)
	}
	return exists, nil
}

// CountPending returns the live count of a user's pending edits. Trust
// ceiling checks use this, never the cached counter.
func (r *EditRepository) CountPending(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM edits WHERE user_id = $1 AND status = 'PENDING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count pending edits: %w", err)
	}
	return count, nil
}

// ReviewParams groups the inputs of a moderation decision.
type ReviewParams struct {
	Edit        *models.Edit
	ModeratorID string
	ReviewedAt  time.Time
	Note        *string
}

// Approve applies the edit inside one transaction: the wiki override is
// written, the edit becomes APPLIED, competing pending edits for the same
// field become SUPERSEDED, and all affected counters are adjusted. It
// returns sql.ErrNoRows when the edit was already reviewed.
func (r *EditRepository) Approve(ctx context.Context, params ReviewParams) error {
	edit := params.Edit
	table, ok := entityTable(edit.EntityType)
	if !ok {
		return fmt.Errorf("unknown entity type %q", edit.EntityType)
	}
	if err := safeColumn(edit.EntityType, edit.Field); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve edit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statusQuery := `UPDATE edits SET status = 'APPLIED', moderator_id = $2, moderator_note = $3, reviewed_at = $4 WHERE id = $1 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, statusQuery, edit.ID, params.ModeratorID, params.Note, params.ReviewedAt)
	if err != nil {
		return fmt.Errorf("mark edit applied: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check applied rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	entityQuery := fmt.Sprintf("UPDATE %s SET %s = $2, updated_at = $3 WHERE id = $1", table, wikiColumn(edit.Field))
	result, err = tx.ExecContext(ctx, entityQuery, edit.EntityID, edit.NewValue, params.ReviewedAt)
	if err != nil {
		return fmt.Errorf("write wiki override: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check entity rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	// The field's baseline changed; leaving competing edits PENDING would
	// invite approvals against a stale old value.
	const supersedeQuery = `UPDATE edits SET status = 'SUPERSEDED', reviewed_at = $5
	WHERE entity_type = $1 AND entity_id = $2 AND field = $3 AND status = 'PENDING' AND id <> $4
	RETURNING user_id`
	supersededRows, err := tx.QueryContext(ctx, supersedeQuery, edit.EntityType, edit.EntityID, edit.Field, edit.ID, params.ReviewedAt)
	if err != nil {
		return fmt.Errorf("supersede pending edits: %w", err)
	}
	supersededUsers := make([]string, 0, 2)
	for supersededRows.Next() {
		var userID string
		if err := supersededRows.Scan(&userID); err != nil {
			supersededRows.Close()
			return fmt.Errorf("scan superseded user: %w", err)
		}
		supersededUsers = append(supersededUsers, userID)
	}
	if err := supersededRows.Err(); err != nil {
		return fmt.Errorf("iterate superseded users: %w", err)
	}
	supersededRows.Close()

	const decrementQuery = `UPDATE users SET edits_pending = GREATEST(edits_pending - 1, 0), updated_at = $2 WHERE id = $1`
	for _, userID := range supersededUsers {
		if _, err := tx.ExecContext(ctx, decrementQuery, userID, params.ReviewedAt); err != nil {
			return fmt.Errorf("decrement superseded counter: %w", err)
		}
	}

	const submitterQuery = `UPDATE users SET edits_accepted = edits_accepted + 1, edits_pending = GREATEST(edits_pending - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, submitterQuery, edit.UserID, params.ReviewedAt); err != nil {
		return fmt.Errorf("update submitter counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve edit: %w", err)
	}
	return nil
}

// Reject marks the edit REJECTED and adjusts the submitter's counters in
// one transaction; the entity is left untouched. It returns sql.ErrNoRows
// when the edit was already reviewed.
func (r *EditRepository) Reject(ctx context.Context, params ReviewParams) error {
	edit := params.Edit

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject edit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const statusQuery = `UPDATE edits SET status = 'REJECTED', moderator_id = $2, moderator_note = $3, reviewed_at = $4 WHERE id = $1 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, statusQuery, edit.ID, params.ModeratorID, params.Note, params.ReviewedAt)
	if err != nil {
		return fmt.Errorf("mark edit rejected: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rejected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	const submitterQuery = `UPDATE users SET edits_rejected = edits_rejected + 1, edits_pending = GREATEST(edits_pending - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, submitterQuery, edit.UserID, params.ReviewedAt); err != nil {
		return fmt.Errorf("update submitter counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reject edit: %w", err)
	}
	return nil
}

// PendingByEntity returns pending-edit counts grouped by entity type.
func (r *EditRepository) PendingByEntity(ctx context.Context) ([]models.EntityPendingCount, error) {
	const query = `SELECT entity_type, COUNT(*) AS count FROM edits WHERE status = 'PENDING' GROUP BY entity_type ORDER BY count DESC`
	var counts []models.EntityPendingCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("pending by entity: %w", err)
	}
	return counts, nil
}

// OldestPending returns the longest-waiting pending edit, or nil when the
// queue is empty.
func (r *EditRepository) OldestPending(ctx context.Context) (*models.EditWithSubmitter, error) {
	query := fmt.Sprintf("SELECT %s FROM edits e JOIN users u ON u.id = e.user_id WHERE e.status = 'PENDING' ORDER BY e.created_at ASC LIMIT 1", editJoinColumns)
	var edit models.EditWithSubmitter
	if err := r.db.GetContext(ctx, &edit, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("oldest pending edit: %w", err)
	}
	return &edit, nil
}

// ReviewCountsSince returns APPLIED/REJECTED counts reviewed on or after
// the given instant.
func (r *EditRepository) ReviewCountsSince(ctx context.Context, since time.Time) ([]models.EditStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM edits WHERE reviewed_at >= $1 AND status IN ('APPLIED', 'REJECTED') GROUP BY status`
	var counts []models.EditStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("review counts: %w", err)
	}
	return counts, nil
}

// TopModerators ranks moderators by review volume since the given instant.
func (r *EditRepository) TopModerators(ctx context.Context, since time.Time, limit int) ([]models.UserVolume, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT u.public_id, u.display_name, COUNT(*) AS count
	FROM edits e JOIN users u ON u.id = e.moderator_id
	WHERE e.reviewed_at >= $1 GROUP BY u.public_id, u.display_name ORDER BY count DESC LIMIT %d`, limit)
	var volumes []models.UserVolume
	if err := r.db.SelectContext(ctx, &volumes, query, since); err != nil {
		return nil, fmt.Errorf("top moderators: %w", err)
	}
	return volumes, nil
}

// TopContributors ranks submitters by edit volume since the given instant.
func (r *EditRepository) TopContributors(ctx context.Context, since time.Time, limit int) ([]models.UserVolume, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT u.public_id, u.display_name, COUNT(*) AS count
	FROM edits e JOIN users u ON u.id = e.user_id
	WHERE e.created_at >= $1 GROUP BY u.public_id, u.display_name ORDER BY count DESC LIMIT %d`, limit)
	var volumes []models.UserVolume
	if err := r.db.SelectContext(ctx, &volumes, query, since); err != nil {
		return nil, fmt.Errorf("top contributors: %w", err)
	}
	return volumes, nil
}

// StatusCountsForUser returns a user's edits grouped by status.
func (r *EditRepository) StatusCountsForUser(ctx context.Context, userID string) ([]models.EditStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM edits WHERE user_id = $1 GROUP BY status`
	var counts []models.EditStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("status counts for user: %w", err)
	}
	return counts, nil
}
