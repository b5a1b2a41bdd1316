package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
	appLogger "github.com/sandpiper/backend/pkg/logger"
)

// Failures answer 200 unless a call site asks for another status.
const failureStatus = http.StatusOK

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, payload transport.Envelope) {
	h.respondJSON(ctx, http.StatusOK, payload)
}

func (h baseHandler) respondFailure(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, failureStatus, transport.NewFailure(message))
}

func (h baseHandler) respondFailureStatus(ctx *fasthttp.RequestCtx, status int, message string) {
	h.respondJSON(ctx, status, transport.NewFailure(message))
}

// respondError answers with the message of a client-facing domain error.
// Anything else is logged and answered with fallback.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error, fallback string) {
	status, expose := mapError(err)
	if !expose {
		appLogger.WithRequestID(stdCtx, h.logger).Error(fallback,
			zap.String("path", string(ctx.Path())),
			zap.Error(err))
		h.respondFailureStatus(ctx, status, fallback)
		return
	}
	h.respondFailureStatus(ctx, status, domain.Message(err, fallback))
}

func mapError(err error) (int, bool) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, true
	case domain.IsDomainError(err, domain.ErrCodeForbidden),
		domain.IsDomainError(err, domain.ErrCodeInvalid),
		domain.IsDomainError(err, domain.ErrCodeCorrupted),
		domain.IsDomainError(err, domain.ErrCodeConflict),
		domain.IsDomainError(err, domain.ErrCodeNotFound):
		return failureStatus, true
	default:
		return failureStatus, false
	}
}

// principal returns the authenticated person id or answers 401.
func (h baseHandler) principal(ctx *fasthttp.RequestCtx) (string, bool) {
	personID := httpcontext.PersonID(ctx)
	if personID == "" {
		h.respondFailureStatus(ctx, http.StatusUnauthorized, "Authentication required.")
		return "", false
	}
	return personID, true
}

func pathID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}
