package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
)

type stubAuthenticator struct {
	sessions map[string]*domain.Session
	err      error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

func TestAuth(t *testing.T) {
	auth := stubAuthenticator{sessions: map[string]*domain.Session{
		"good": {ID: "sid-1", PersonID: "person-1"},
	}}

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantPerson string
	}{
		{name: "missing header", header: "", wantStatus: fasthttp.StatusUnauthorized},
		{name: "bearer token", header: "Bearer good", wantStatus: fasthttp.StatusOK, wantPerson: "person-1"},
		{name: "bare token", header: "good", wantStatus: fasthttp.StatusOK, wantPerson: "person-1"},
		{name: "unknown token", header: "Bearer bad", wantStatus: fasthttp.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotPerson, gotSession string
			handler := Auth(auth, time.Second, zap.NewNop())(func(ctx *fasthttp.RequestCtx) {
				gotPerson = httpcontext.PersonID(ctx)
				gotSession = httpcontext.SessionID(ctx)
			})

			ctx := &fasthttp.RequestCtx{}
			if tc.header != "" {
				ctx.Request.Header.Set("Authorization", tc.header)
			}
			handler(ctx)

			if got := ctx.Response.StatusCode(); got != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", got, tc.wantStatus)
			}
			if gotPerson != tc.wantPerson {
				t.Fatalf("person: got %q, want %q", gotPerson, tc.wantPerson)
			}
			if tc.wantPerson != "" && gotSession != "sid-1" {
				t.Fatalf("session: got %q, want %q", gotSession, "sid-1")
			}
			if tc.wantStatus == fasthttp.StatusUnauthorized && !bytes.Contains(ctx.Response.Body(), []byte(`"success":false`)) {
				t.Fatalf("body: got %s, want failure envelope", ctx.Response.Body())
			}
		})
	}
}

func TestAuthLogsStoreFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	called := false
	handler := Auth(stubAuthenticator{err: errors.New("redis down")}, time.Second, zap.New(core))(func(*fasthttp.RequestCtx) {
		called = true
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer good")
	handler(ctx)

	if called {
		t.Fatal("next handler must not run")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", got, fasthttp.StatusUnauthorized)
	}
	if logs.FilterMessage("session lookup failed").Len() != 1 {
		t.Fatalf("expected store failure to be logged, got %v", logs.All())
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := AccessLog(zap.New(core))(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusCreated)
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/todo/")
	handler(ctx)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/todo/" {
		t.Fatalf("path: got %v, want %q", fields["path"], "/todo/")
	}
	if fields["status"] != int64(fasthttp.StatusCreated) {
		t.Fatalf("status: got %v, want %d", fields["status"], fasthttp.StatusCreated)
	}
}
