package httpcontext

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	appLogger "github.com/sandpiper/backend/pkg/logger"
)

func TestAttachPropagatesRequestMetadata(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-Request-ID", "req-42")
	ctx.Request.Header.SetUserAgent("tests")
	SetPrincipal(&ctx, "p1", "s1")

	stdCtx, cancel := NewAdapter(time.Second).Attach(&ctx)
	defer cancel()

	if got := appLogger.RequestID(stdCtx); got != "req-42" {
		t.Errorf("request id: got %q, want req-42", got)
	}
	if got := string(ctx.Response.Header.Peek("X-Request-ID")); got != "req-42" {
		t.Errorf("response header: got %q, want req-42", got)
	}
	if got, _ := stdCtx.Value(KeyPersonID).(string); got != "p1" {
		t.Errorf("person id: got %q, want p1", got)
	}
	if got, _ := stdCtx.Value(KeyUserAgent).(string); got != "tests" {
		t.Errorf("user agent: got %q, want tests", got)
	}
	if _, ok := stdCtx.Deadline(); !ok {
		t.Error("deadline: expected request timeout")
	}
}

func TestAttachGeneratesRequestID(t *testing.T) {
	var ctx fasthttp.RequestCtx

	stdCtx, cancel := NewAdapter(0).Attach(&ctx)
	defer cancel()

	if appLogger.RequestID(stdCtx) == "" {
		t.Error("request id: expected generated value")
	}
	if PersonID(&ctx) != "" || SessionID(&ctx) != "" {
		t.Error("principal: expected anonymous request")
	}
}
