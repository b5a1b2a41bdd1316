package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

var _ repository.DebugRepository = (*TodoRepository)(nil)

// TodoSnapshot returns the newest rows of both tables, like the Postgres
// diagnostics query.
func (r *TodoRepository) TodoSnapshot(ctx context.Context, limit int) (*repository.DebugSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := make([]domain.Todo, 0, len(r.current))
	for _, t := range r.current {
		current = append(current, t)
	}
	audit := append([]domain.Todo(nil), r.audit...)

	return &repository.DebugSnapshot{
		Tables: []string{"todo", "todo_audit"},
		Todos:  debugRows(current, limit),
		Audit:  debugRows(audit, limit),
	}, nil
}

func debugRows(todos []domain.Todo, limit int) []repository.DebugRow {
	sort.SliceStable(todos, func(i, j int) bool {
		return todos[i].ChangedOn.After(todos[j].ChangedOn)
	})
	if limit > 0 && len(todos) > limit {
		todos = todos[:limit]
	}

	out := make([]repository.DebugRow, 0, len(todos))
	for _, t := range todos {
		row := repository.DebugRow{
			EntityID:    t.EntityID,
			PersonID:    t.PersonID,
			Title:       t.Title,
			Active:      t.Active,
			IsCompleted: t.IsCompleted,
			Version:     t.Version,
		}
		if !t.ChangedOn.IsZero() {
			row.ChangedOn = t.ChangedOn.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, row)
	}
	return out
}
