package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type sizeFunc func() (int, error)

func (f sizeFunc) Size() (int, error) { return f() }

func TestCheckReportsEveryProbe(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: srv.Addr()})
	defer client.Close()

	pg := pingFunc(func(context.Context) error { return nil })
	outbox := sizeFunc(func() (int, error) { return 3, nil })

	m := New(pg, RedisPinger{Client: client}, outbox, 0, nil)
	status := m.Check(context.Background())

	if !status.PostgreSQL || !status.Redis || !status.Outbox {
		t.Errorf("status: got %+v, want all probes up", status)
	}
	if status.OutboxSize != 3 {
		t.Errorf("OutboxSize: got %d, want 3", status.OutboxSize)
	}
	if !m.IsOnline() || !m.GetStatus().Healthy() {
		t.Error("IsOnline: got false, want true")
	}
}

func TestCheckMarksFailures(t *testing.T) {
	pg := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	outbox := sizeFunc(func() (int, error) { return 0, errors.New("database not open") })

	m := New(pg, nil, outbox, 0, nil)
	status := m.Check(context.Background())

	if status.PostgreSQL || status.Redis || status.Outbox {
		t.Errorf("status: got %+v, want all probes down", status)
	}
	if m.IsOnline() {
		t.Error("IsOnline: got true, want false")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(nil, nil, nil, 0, nil)
	m.Start()
	m.Stop()
	m.Stop()
}
