package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sandpiper/backend/repository"
)

type debugRepository struct {
	db DB
}

// NewDebugRepository exposes raw todo table contents for non-production diagnostics.
func NewDebugRepository(db DB) repository.DebugRepository {
	return &debugRepository{db: db}
}

func (r *debugRepository) TodoSnapshot(ctx context.Context, limit int) (*repository.DebugSnapshot, error) {
	limit = clampLimit(limit)
	snapshot := &repository.DebugSnapshot{}

	rows, err := r.db.Query(ctx, `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name LIKE '%todo%'
	ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		snapshot.Tables = append(snapshot.Tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if snapshot.Todos, err = r.latest(ctx, "todo", limit); err != nil {
		return nil, err
	}
	if snapshot.Audit, err = r.latest(ctx, "todo_audit", limit); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *debugRepository) latest(ctx context.Context, table string, limit int) ([]repository.DebugRow, error) {
	query := fmt.Sprintf(`
	SELECT entity_id, person_id, title, active, is_completed, changed_on, version
	FROM %s
	ORDER BY changed_on DESC
	LIMIT $1
	`, table)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []repository.DebugRow{}
	for rows.Next() {
		var (
			row         repository.DebugRow
			personID    pgtype.Text
			title       pgtype.Text
			active      pgtype.Bool
			isCompleted pgtype.Bool
			changedOn   pgtype.Timestamp
		)
		if err := rows.Scan(&row.EntityID, &personID, &title, &active, &isCompleted, &changedOn, &row.Version); err != nil {
			return nil, err
		}
		row.PersonID = personID.String
		row.Title = title.String
		row.Active = active.Bool
		row.IsCompleted = isCompleted.Bool
		if changedOn.Valid {
			row.ChangedOn = changedOn.Time.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
