package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

// Action names the operation an ownership check guards.
type Action string

const (
	ActionAccess Action = "access"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const corruptedMessage = "Todo data is corrupted (missing person_id)."

// ErrConflict is returned when another request saved the todo first.
var ErrConflict = domain.NewError(domain.ErrCodeConflict, "Todo was modified by another request.")

// CreateInput carries the fields accepted on creation.
type CreateInput struct {
	PersonID    string
	Title       string
	Description *string
	DueDate     *time.Time
}

// Patch lists the fields an update may change. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	IsCompleted *bool
	DueDate     *time.Time
}

type UseCase struct {
	todos  repository.TodoRepository
	logger *zap.Logger
}

func New(todos repository.TodoRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		todos:  todos,
		logger: logger,
	}
}

func (uc *UseCase) ListByOwner(ctx context.Context, personID string) ([]*domain.Todo, error) {
	todos, err := uc.todos.ListByOwner(ctx, personID)
	if err != nil {
		return nil, err
	}
	return uc.withOwner(todos), nil
}

func (uc *UseCase) ListByOwnerAndStatus(ctx context.Context, personID string, isCompleted bool) ([]*domain.Todo, error) {
	todos, err := uc.todos.ListByOwnerAndStatus(ctx, personID, isCompleted)
	if err != nil {
		return nil, err
	}
	return uc.withOwner(todos), nil
}

// GetByID returns nil when the todo does not exist, is deleted, or has lost
// its owner.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := uc.todos.GetByID(ctx, id)
	if err != nil || todo == nil {
		return nil, err
	}
	if todo.IsCorrupted() {
		uc.logger.Warn("todo without owner hidden", zap.String("todo_id", id))
		return nil, nil
	}
	return todo, nil
}

func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*domain.Todo, error) {
	if in.PersonID == "" {
		return nil, domain.Validation("person_id is required")
	}
	if in.Title == "" {
		return nil, domain.Validation("title is required")
	}

	todo := domain.NewTodo(in.PersonID, in.Title, in.Description, in.DueDate)
	if err := todo.Validate(); err != nil {
		return nil, err
	}

	saved, err := uc.save(ctx, todo)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("todo created", zap.String("todo_id", saved.EntityID), zap.String("person_id", saved.PersonID))
	return saved, nil
}

// Update applies patch to the stored todo. It returns nil when no active todo
// has the id.
func (uc *UseCase) Update(ctx context.Context, id string, patch Patch) (*domain.Todo, error) {
	todo, err := uc.load(ctx, id, "update")
	if err != nil || todo == nil {
		return nil, err
	}

	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Description != nil {
		description := *patch.Description
		todo.Description = &description
	}
	if patch.IsCompleted != nil {
		todo.IsCompleted = *patch.IsCompleted
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		todo.DueDate = &due
	}

	if err := todo.Validate(); err != nil {
		return nil, err
	}
	return uc.save(ctx, todo)
}

// Delete soft-deletes the todo. It reports false when no active todo has the id.
func (uc *UseCase) Delete(ctx context.Context, id string) (bool, error) {
	todo, err := uc.load(ctx, id, "delete")
	if err != nil || todo == nil {
		return false, err
	}

	todo.Active = false
	if _, err := uc.save(ctx, todo); err != nil {
		return false, err
	}
	uc.logger.Info("todo deleted", zap.String("todo_id", id))
	return true, nil
}

// ToggleCompletion flips is_completed. It returns nil when no active todo has the id.
func (uc *UseCase) ToggleCompletion(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := uc.load(ctx, id, "toggle")
	if err != nil || todo == nil {
		return nil, err
	}

	todo.IsCompleted = !todo.IsCompleted
	return uc.save(ctx, todo)
}

// CheckAccess verifies personID owns todo. A todo without owner is reported
// as corrupted before ownership is considered.
func CheckAccess(todo *domain.Todo, personID string, action Action) error {
	if todo.IsCorrupted() {
		return domain.NewError(domain.ErrCodeCorrupted, corruptedMessage)
	}
	if todo.PersonID != personID {
		return domain.NewError(domain.ErrCodeForbidden, fmt.Sprintf("You don't have permission to %s this todo.", action))
	}
	return nil
}

func (uc *UseCase) load(ctx context.Context, id, verb string) (*domain.Todo, error) {
	todo, err := uc.todos.GetByID(ctx, id)
	if err != nil || todo == nil {
		return nil, err
	}
	if todo.IsCorrupted() {
		uc.logger.Error("todo without owner", zap.String("todo_id", id), zap.String("operation", verb))
		return nil, domain.NewError(domain.ErrCodeCorrupted, fmt.Sprintf("Cannot %s todo with missing person_id", verb))
	}
	return todo, nil
}

func (uc *UseCase) save(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	saved, err := uc.todos.Save(ctx, todo)
	if errors.Is(err, domain.ErrVersionConflict) {
		uc.logger.Warn("todo version conflict", zap.String("todo_id", todo.EntityID), zap.String("version", todo.Version))
		return nil, domain.WrapError(ErrConflict.Code, ErrConflict.Message, err)
	}
	return saved, err
}

func (uc *UseCase) withOwner(todos []*domain.Todo) []*domain.Todo {
	out := make([]*domain.Todo, 0, len(todos))
	for _, t := range todos {
		if t == nil || t.IsCorrupted() {
			continue
		}
		out = append(out, t)
	}
	if dropped := len(todos) - len(out); dropped > 0 {
		uc.logger.Warn("todos without owner dropped", zap.Int("count", dropped))
	}
	return out
}
