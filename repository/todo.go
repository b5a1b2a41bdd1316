package repository

import (
	"context"

	"github.com/sandpiper/backend/domain"
)

// TodoRepository persists todos through the versioned write path. Lookups
// only ever see active rows; GetByID returns nil when nothing matches.
type TodoRepository interface {
	ListByOwner(ctx context.Context, personID string) ([]*domain.Todo, error)
	ListByOwnerAndStatus(ctx context.Context, personID string, isCompleted bool) ([]*domain.Todo, error)
	GetByID(ctx context.Context, id string) (*domain.Todo, error)
	Save(ctx context.Context, todo *domain.Todo) (*domain.Todo, error)
}

// DebugRow is a trimmed projection of a todo row used by diagnostics endpoints.
type DebugRow struct {
	EntityID    string `json:"entity_id"`
	PersonID    string `json:"person_id"`
	Title       string `json:"title"`
	Active      bool   `json:"active"`
	IsCompleted bool   `json:"is_completed"`
	ChangedOn   string `json:"changed_on"`
	Version     string `json:"version"`
}

// DebugSnapshot is the raw view of both todo tables.
type DebugSnapshot struct {
	Tables []string   `json:"tables"`
	Todos  []DebugRow `json:"todos_in_main_table"`
	Audit  []DebugRow `json:"todos_in_audit_table"`
}

type DebugRepository interface {
	TodoSnapshot(ctx context.Context, limit int) (*DebugSnapshot, error)
}
