package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

// todoTable fixes the positional column order shared by todo and todo_audit.
var todoTable = versionedTable{
	name:    "todo",
	columns: []string{"person_id", "title", "description", "is_completed", "due_date"},
}

type todoRepository struct {
	db     DB
	logger *zap.Logger
}

// NewTodoRepository returns a Postgres-backed implementation of TodoRepository.
func NewTodoRepository(db DB, logger *zap.Logger) repository.TodoRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &todoRepository{db: db, logger: logger}
}

func (r *todoRepository) ListByOwner(ctx context.Context, personID string) ([]*domain.Todo, error) {
	if personID == "" {
		return []*domain.Todo{}, nil
	}
	query := fmt.Sprintf(`
	SELECT %s
	FROM todo
	WHERE person_id = $1 AND active = true
	ORDER BY changed_on DESC
	`, todoTable.selectList())
	return r.list(ctx, query, personID)
}

func (r *todoRepository) ListByOwnerAndStatus(ctx context.Context, personID string, isCompleted bool) ([]*domain.Todo, error) {
	if personID == "" {
		return []*domain.Todo{}, nil
	}
	query := fmt.Sprintf(`
	SELECT %s
	FROM todo
	WHERE person_id = $1 AND active = true AND is_completed = $2
	ORDER BY changed_on DESC
	`, todoTable.selectList())
	return r.list(ctx, query, personID, isCompleted)
}

func (r *todoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	if id == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`
	SELECT %s
	FROM todo
	WHERE entity_id = $1 AND active = true
	`, todoTable.selectList())

	todo, err := scanTodo(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *todoRepository) Save(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	if todo == nil {
		return nil, domain.Validation("Todo object is required")
	}
	if err := todo.Validate(); err != nil {
		return nil, err
	}

	err := saveVersioned(ctx, r.db, todoTable, &todo.VersionedModel, todo.PersonID,
		todo.PersonID,
		todo.Title,
		nullStringPtr(todo.Description),
		todo.IsCompleted,
		nullTimePtr(todo.DueDate),
	)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *todoRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Todo, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []*domain.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			r.logger.Warn("skipping unreadable todo row", zap.Error(err))
			continue
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// scanTodo maps one row in todoTable order. A missing row surfaces as
// pgx.ErrNoRows and never yields a partially filled todo.
func scanTodo(row rowScanner) (*domain.Todo, error) {
	var (
		base        versionedColumns
		personID    pgtype.Text
		title       pgtype.Text
		description pgtype.Text
		isCompleted pgtype.Bool
		dueDate     pgtype.Timestamp
	)

	targets := append(base.targets(), &personID, &title, &description, &isCompleted, &dueDate)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	return &domain.Todo{
		VersionedModel: base.model(),
		PersonID:       personID.String,
		Title:          title.String,
		Description:    textPtr(description),
		IsCompleted:    isCompleted.Valid && isCompleted.Bool,
		DueDate:        timestampPtr(dueDate),
	}, nil
}
