package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/openballot/openballot-api/internal/models"
)

// entityTables maps entity types onto their backing tables. Field names from
// the editable allowlist double as column names; the wiki override lives in
// a sibling "<column>_wiki" column.
var entityTables = map[models.EntityType]string{
	models.EntityCandidate: "candidates",
	models.EntityRace:      "races",
	models.EntityOffice:    "offices",
	models.EntityGuide:     "guides",
}

func entityTable(entity models.EntityType) (string, bool) {
	table, ok := entityTables[entity]
	return table, ok
}

func wikiColumn(field string) string {
	return field + "_wiki"
}

// safeColumn guards against identifier injection: only allowlisted field
// names may be interpolated into SQL.
func safeColumn(entity models.EntityType, field string) error {
	if !models.FieldEditable(entity, field) {
		return fmt.Errorf("field %q is not a known column of %s", field, entity)
	}
	return nil
}

// FieldValue carries the two-tier value of an entity field.
type FieldValue struct {
	Canonical sql.NullString `db:"canonical"`
	Wiki      sql.NullString `db:"wiki"`
}

// Resolved applies the override rule: wiki value when non-empty, else the
// canonical value.
func (v FieldValue) Resolved() string {
	if v.Wiki.Valid && strings.TrimSpace(v.Wiki.String) != "" {
		return v.Wiki.String
	}
	if v.Canonical.Valid {
		return v.Canonical.String
	}
	return ""
}

// EntityRepository reads and writes the community-editable entity tables.
type EntityRepository struct {
	db *sqlx.DB
}

// NewEntityRepository constructs the repository.
func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// ResolveField loads the canonical and wiki values of one field. It returns
// sql.ErrNoRows when the entity does not exist.
func (r *EntityRepository) ResolveField(ctx context.Context, entity models.EntityType, entityID, field string) (FieldValue, error) {
	var value FieldValue
	table, ok := entityTable(entity)
	if !ok {
		return value, fmt.Errorf("unknown entity type %q", entity)
	}
	if err := safeColumn(entity, field); err != nil {
		return value, err
	}
	query := fmt.Sprintf("SELECT %s AS canonical, %s AS wiki FROM %s WHERE id = $1", field, wikiColumn(field), table)
	if err := r.db.GetContext(ctx, &value, query, entityID); err != nil {
		if err == sql.ErrNoRows {
			return value, err
		}
		return value, fmt.Errorf("resolve %s.%s: %w", table, field, err)
	}
	return value, nil
}
