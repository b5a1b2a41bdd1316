package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sandpiper/backend/domain"
)

var baseColumns = []string{"entity_id", "version", "previous_version", "active", "changed_by_id", "changed_on"}

// versionedTable describes a primary table and its <name>_audit twin. Both
// share the column layout: the base columns followed by the domain columns.
type versionedTable struct {
	name    string
	columns []string
}

func (t versionedTable) allColumns() []string {
	return append(append([]string{}, baseColumns...), t.columns...)
}

func (t versionedTable) selectList() string {
	return strings.Join(t.allColumns(), ", ")
}

func (t versionedTable) placeholders() string {
	cols := t.allColumns()
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(marks, ", ")
}

func (t versionedTable) auditInsert() string {
	return fmt.Sprintf("INSERT INTO %s_audit (%s) VALUES (%s)", t.name, t.selectList(), t.placeholders())
}

// upsert replaces the current row only when it still holds the version the
// caller loaded.
func (t versionedTable) upsert() string {
	cols := t.allColumns()
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (entity_id) DO UPDATE SET %s WHERE %s.version = EXCLUDED.previous_version",
		t.name, t.selectList(), t.placeholders(), strings.Join(sets, ", "), t.name,
	)
}

// saveVersioned advances the model to a new version and writes it to the
// audit table and the primary table in one transaction. On failure the model
// is restored to the state it had before the call.
func saveVersioned(ctx context.Context, db DB, table versionedTable, model *domain.VersionedModel, actor string, values ...interface{}) (err error) {
	restore := model.Advance(actor, time.Now())
	defer func() {
		if err != nil {
			restore()
		}
	}()

	args := append([]interface{}{
		model.EntityID,
		model.Version,
		model.PreviousVersion,
		model.Active,
		nullString(model.ChangedByID),
		model.ChangedOn,
	}, values...)

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, table.auditInsert(), args...); err != nil {
		return fmt.Errorf("insert %s_audit: %w", table.name, err)
	}

	tag, err := tx.Exec(ctx, table.upsert(), args...)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table.name, err)
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrVersionConflict
		return err
	}

	return tx.Commit(ctx)
}

// versionedColumns holds scan targets for the base columns.
type versionedColumns struct {
	entityID        string
	version         string
	previousVersion pgtype.Text
	active          pgtype.Bool
	changedByID     pgtype.Text
	changedOn       pgtype.Timestamp
}

func (v *versionedColumns) targets() []interface{} {
	return []interface{}{&v.entityID, &v.version, &v.previousVersion, &v.active, &v.changedByID, &v.changedOn}
}

func (v *versionedColumns) model() domain.VersionedModel {
	m := domain.VersionedModel{
		EntityID:        v.entityID,
		Version:         v.version,
		PreviousVersion: v.previousVersion.String,
		Active:          !v.active.Valid || v.active.Bool,
		ChangedByID:     v.changedByID.String,
	}
	if v.changedOn.Valid {
		m.ChangedOn = v.changedOn.Time.UTC()
	}
	return m
}
