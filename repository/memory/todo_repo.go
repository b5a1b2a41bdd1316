package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

// TodoRepository is a map-backed repository.TodoRepository.
type TodoRepository struct {
	mu      sync.RWMutex
	current map[string]domain.Todo
	audit   []domain.Todo
	now     func() time.Time

	// FailSave, when set, is returned by the next Save calls instead of writing.
	FailSave error
}

var _ repository.TodoRepository = (*TodoRepository)(nil)

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{
		current: make(map[string]domain.Todo),
		now:     time.Now,
	}
}

func (r *TodoRepository) ListByOwner(ctx context.Context, personID string) ([]*domain.Todo, error) {
	return r.filter(personID, func(domain.Todo) bool { return true }), nil
}

func (r *TodoRepository) ListByOwnerAndStatus(ctx context.Context, personID string, isCompleted bool) ([]*domain.Todo, error) {
	return r.filter(personID, func(t domain.Todo) bool { return t.IsCompleted == isCompleted }), nil
}

func (r *TodoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.current[id]
	if !ok || !t.Active {
		return nil, nil
	}
	return clone(t), nil
}

func (r *TodoRepository) Save(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	if todo == nil {
		return nil, domain.Validation("Todo object is required")
	}
	if err := todo.Validate(); err != nil {
		return nil, err
	}
	if r.FailSave != nil {
		return nil, r.FailSave
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.current[todo.EntityID]
	if exists && stored.Version != todo.Version {
		return nil, domain.ErrVersionConflict
	}

	todo.Advance(todo.PersonID, r.now())
	r.audit = append(r.audit, *clone(*todo))
	r.current[todo.EntityID] = *clone(*todo)
	return todo, nil
}

// Put stores a row as-is, bypassing validation and versioning.
func (r *TodoRepository) Put(todo domain.Todo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[todo.EntityID] = todo
}

// History returns every audit row written for the entity, oldest first.
func (r *TodoRepository) History(entityID string) []domain.Todo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Todo
	for _, t := range r.audit {
		if t.EntityID == entityID {
			out = append(out, *clone(t))
		}
	}
	return out
}

// Rows returns the number of rows in the primary and audit tables.
func (r *TodoRepository) Rows() (current, audit int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.current), len(r.audit)
}

func (r *TodoRepository) filter(personID string, keep func(domain.Todo) bool) []*domain.Todo {
	out := []*domain.Todo{}
	if personID == "" {
		return out
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.current {
		if t.PersonID == personID && t.Active && keep(t) {
			out = append(out, clone(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedOn.After(out[j].ChangedOn)
	})
	return out
}

func clone(t domain.Todo) *domain.Todo {
	c := t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}
