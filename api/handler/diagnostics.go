package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
	"github.com/sandpiper/backend/repository"
	authUC "github.com/sandpiper/backend/usecase/auth"
)

const debugRowLimit = 10

// TestUserCreator registers a person whose email needs no verification.
type TestUserCreator interface {
	CreateTestUser(ctx context.Context, in authUC.SignupInput) (*domain.Person, *domain.Email, error)
}

// DiagnosticsHandler serves the /test endpoints. Every route answers 404
// in production.
type DiagnosticsHandler struct {
	baseHandler
	environment string
	production  bool
	users       TestUserCreator
	debug       repository.DebugRepository
}

func NewDiagnosticsHandler(environment string, production bool, users TestUserCreator, debug repository.DebugRepository, adapter *httpcontext.Adapter, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		environment: environment,
		production:  production,
		users:       users,
		debug:       debug,
	}
}

// @Summary Test endpoints availability
// @Tags test
// @Router /test/health [get]
func (h *DiagnosticsHandler) Health(ctx *fasthttp.RequestCtx) {
	if h.disabled(ctx) {
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Test endpoints are available").With("environment", h.environment))
}

// @Summary Create a verified test user
// @Tags test
// @Router /test/create_user [post]
func (h *DiagnosticsHandler) CreateUser(ctx *fasthttp.RequestCtx) {
	if h.disabled(ctx) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.SignupRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondFailure(ctx, domain.Message(err, "Failed to create test user"))
		return
	}
	in, err := signupInput(req)
	if err != nil {
		h.respondFailure(ctx, domain.Message(err, "Failed to create test user"))
		return
	}

	person, email, err := h.users.CreateTestUser(stdCtx, in)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			h.respondFailure(ctx, "Email address already registered")
			return
		}
		h.logger.Error("test user creation failed", zap.Error(err))
		h.respondFailure(ctx, "Failed to create test user: "+err.Error())
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Test user created successfully").
		With("user_id", person.EntityID).
		With("email", email.Address))
}

// @Summary Latest rows of the todo tables
// @Tags test
// @Router /test/debug_todos [get]
func (h *DiagnosticsHandler) DebugTodos(ctx *fasthttp.RequestCtx) {
	if h.disabled(ctx) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	snapshot, err := h.debug.TodoSnapshot(stdCtx, debugRowLimit)
	if err != nil {
		h.respondFailure(ctx, "Debug failed: "+err.Error())
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Debug data retrieved").
		With("tables", snapshot.Tables).
		With("todos_in_main_table", nonNilRows(snapshot.Todos)).
		With("todos_in_audit_table", nonNilRows(snapshot.Audit)))
}

func (h *DiagnosticsHandler) disabled(ctx *fasthttp.RequestCtx) bool {
	if !h.production {
		return false
	}
	h.respondFailureStatus(ctx, http.StatusNotFound, "Test endpoints not available in production")
	return true
}

func nonNilRows(rows []repository.DebugRow) []repository.DebugRow {
	if rows == nil {
		return []repository.DebugRow{}
	}
	return rows
}
