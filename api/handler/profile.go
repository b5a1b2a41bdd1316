package handler

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
	profileUC "github.com/sandpiper/backend/usecase/profile"
)

const personNotFound = "Person not found."

type ProfileService interface {
	GetProfile(ctx context.Context, personID string) (*profileUC.Profile, error)
	UpdateProfile(ctx context.Context, personID, firstName, lastName string) (*profileUC.Profile, error)
}

// PersonHandler serves the signed-in person's own record.
type PersonHandler struct {
	baseHandler
	uc ProfileService
}

func NewPersonHandler(uc ProfileService, adapter *httpcontext.Adapter, logger *zap.Logger) *PersonHandler {
	return &PersonHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get current person
// @Tags person
// @Router /person/me [get]
func (h *PersonHandler) Me(ctx *fasthttp.RequestCtx) {
	personID, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	profile, err := h.uc.GetProfile(stdCtx, personID)
	if err != nil {
		h.respondPersonError(ctx, stdCtx, err, "Failed to fetch person")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("").With("person", profile.Map()))
}

// @Summary Update current person
// @Tags person
// @Router /person/me [put]
func (h *PersonHandler) Update(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to update person"

	personID, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ProfileUpdateRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	firstName, err := transport.Required("first_name", req.FirstName)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	lastName, err := transport.Required("last_name", req.LastName)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	profile, err := h.uc.UpdateProfile(stdCtx, personID, firstName, lastName)
	if err != nil {
		h.respondPersonError(ctx, stdCtx, err, failed)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Profile updated successfully.").With("person", profile.Map()))
}

func (h *PersonHandler) respondPersonError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error, fallback string) {
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		h.respondFailure(ctx, personNotFound)
		return
	}
	h.respondError(ctx, stdCtx, err, fallback)
}

var _ ProfileService = (*profileUC.UseCase)(nil)
