package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/internal/infrastructure/monitor"
	"github.com/sandpiper/backend/pkg/httpcontext"
)

// StatusChecker probes the datastores on demand.
type StatusChecker interface {
	Check(ctx context.Context) monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusChecker
}

func NewHealthHandler(mon StatusChecker, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status := h.monitor.Check(stdCtx)
	services := map[string]interface{}{
		"postgresql": status.PostgreSQL,
		"redis":      status.Redis,
		"mail_outbox": map[string]interface{}{
			"online": status.Outbox,
			"size":   status.OutboxSize,
		},
	}

	if status.Healthy() {
		h.respondSuccess(ctx, transport.NewSuccess("").
			With("timestamp", time.Now().UTC().Format(time.RFC3339)).
			With("services", services))
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewFailure("Service dependencies unavailable").
		With("timestamp", time.Now().UTC().Format(time.RFC3339)).
		With("services", services))
}

var _ StatusChecker = (*monitor.Monitor)(nil)
