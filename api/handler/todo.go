package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
	todoUC "github.com/sandpiper/backend/usecase/todo"
)

const todoNotFound = "Todo not found."

// TodoService is the todo use case as seen by the transport layer.
type TodoService interface {
	ListByOwner(ctx context.Context, personID string) ([]*domain.Todo, error)
	ListByOwnerAndStatus(ctx context.Context, personID string, isCompleted bool) ([]*domain.Todo, error)
	GetByID(ctx context.Context, id string) (*domain.Todo, error)
	Create(ctx context.Context, in todoUC.CreateInput) (*domain.Todo, error)
	Update(ctx context.Context, id string, patch todoUC.Patch) (*domain.Todo, error)
	Delete(ctx context.Context, id string) (bool, error)
	ToggleCompletion(ctx context.Context, id string) (*domain.Todo, error)
}

type TodoHandler struct {
	baseHandler
	uc TodoService
}

func NewTodoHandler(uc TodoService, adapter *httpcontext.Adapter, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List todos of the current person
// @Tags todo
// @Param status query string false "completed, active or all"
// @Router /todo/ [get]
func (h *TodoHandler) List(ctx *fasthttp.RequestCtx) {
	personID, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var (
		todos []*domain.Todo
		err   error
	)
	switch string(ctx.QueryArgs().Peek("status")) {
	case "completed":
		todos, err = h.uc.ListByOwnerAndStatus(stdCtx, personID, true)
	case "active":
		todos, err = h.uc.ListByOwnerAndStatus(stdCtx, personID, false)
	default:
		todos, err = h.uc.ListByOwner(stdCtx, personID)
	}
	if err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to fetch todos")
		return
	}

	out := make([]map[string]interface{}, 0, len(todos))
	for _, t := range todos {
		if t.PersonID == "" || t.Title == "" {
			continue
		}
		out = append(out, t.Map(true))
	}
	h.respondSuccess(ctx, transport.NewSuccess("").With("todos", out))
}

// @Summary Create todo
// @Tags todo
// @Router /todo/ [post]
func (h *TodoHandler) Create(ctx *fasthttp.RequestCtx) {
	personID, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.TodoCreateRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to create todo")
		return
	}
	title, err := transport.Required("title", req.Title)
	if err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to create todo")
		return
	}
	due, err := transport.ParseDueDate(req.DueDate)
	if err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to create todo")
		return
	}

	todo, err := h.uc.Create(stdCtx, todoUC.CreateInput{
		PersonID:    personID,
		Title:       title,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to create todo")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Todo created successfully.").With("todo", todo.Map(true)))
}

// @Summary Get todo
// @Tags todo
// @Router /todo/{id} [get]
func (h *TodoHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	todo, ok := h.owned(ctx, stdCtx, todoUC.ActionAccess, "Failed to fetch todo")
	if !ok {
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("").With("todo", todo.Map(true)))
}

// @Summary Update todo
// @Tags todo
// @Router /todo/{id} [put]
func (h *TodoHandler) Update(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to update todo"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	todo, ok := h.owned(ctx, stdCtx, todoUC.ActionUpdate, failed)
	if !ok {
		return
	}

	var req transport.TodoUpdateRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	due, err := transport.ParseDueDate(req.DueDate)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	updated, err := h.uc.Update(stdCtx, todo.EntityID, todoUC.Patch{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		DueDate:     due,
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	if updated == nil {
		h.respondFailure(ctx, todoNotFound)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Todo updated successfully.").With("todo", updated.Map(true)))
}

// @Summary Delete todo
// @Tags todo
// @Router /todo/{id} [delete]
func (h *TodoHandler) Delete(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to delete todo"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	todo, ok := h.owned(ctx, stdCtx, todoUC.ActionDelete, failed)
	if !ok {
		return
	}

	deleted, err := h.uc.Delete(stdCtx, todo.EntityID)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	if !deleted {
		h.respondFailure(ctx, failed+".")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Todo deleted successfully."))
}

// @Summary Toggle todo completion
// @Tags todo
// @Router /todo/{id}/toggle [put]
func (h *TodoHandler) Toggle(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to toggle todo"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	todo, ok := h.owned(ctx, stdCtx, todoUC.ActionUpdate, failed)
	if !ok {
		return
	}

	updated, err := h.uc.ToggleCompletion(stdCtx, todo.EntityID)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	if updated == nil {
		h.respondFailure(ctx, todoNotFound)
		return
	}

	state := "active"
	if updated.IsCompleted {
		state = "completed"
	}
	h.respondSuccess(ctx, transport.NewSuccess("Todo marked as "+state+".").With("todo", updated.Map(true)))
}

// owned loads the todo named in the path and checks the caller may act on
// it. On failure the response is already written.
func (h *TodoHandler) owned(ctx *fasthttp.RequestCtx, stdCtx context.Context, action todoUC.Action, failed string) (*domain.Todo, bool) {
	personID, ok := h.principal(ctx)
	if !ok {
		return nil, false
	}

	todo, err := h.uc.GetByID(stdCtx, pathID(ctx))
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return nil, false
	}
	if todo == nil {
		h.respondFailure(ctx, todoNotFound)
		return nil, false
	}
	if err := todoUC.CheckAccess(todo, personID, action); err != nil {
		h.logger.Warn("todo access denied",
			zap.String("todo_id", todo.EntityID),
			zap.String("person_id", personID),
			zap.String("action", string(action)))
		h.respondError(ctx, stdCtx, err, failed)
		return nil, false
	}
	return todo, true
}

var _ TodoService = (*todoUC.UseCase)(nil)
