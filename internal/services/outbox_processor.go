package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/internal/infrastructure/buffer"
	"github.com/sandpiper/backend/internal/infrastructure/mailjet"
)

// Sender is the mail provider.
type Sender interface {
	Send(ctx context.Context, messages ...mailjet.Message) error
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// OutboxProcessor sends mail and parks failed sends in the outbox until the
// provider accepts them or the retry budget runs out.
type OutboxProcessor struct {
	store  *buffer.Store
	sender Sender
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ProcessorConfig
}

func NewOutboxProcessor(store *buffer.Store, sender Sender, logger *zap.Logger, cfg ProcessorConfig) *OutboxProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &OutboxProcessor{
		store:  store,
		sender: sender,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return p
}

// Start launches the cron scheduler.
func (p *OutboxProcessor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("mail outbox processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (p *OutboxProcessor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("mail outbox processor stopped")
}

// Drain retries pending mail synchronously and expires items past retention.
func (p *OutboxProcessor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}

	items, err := p.store.GetBatch(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.send(ctx, item); err != nil {
			item.Retries++
			item.LastError = err.Error()
			if item.Retries >= p.cfg.MaxRetries {
				p.logger.Error("dropping mail (max retries reached)",
					zap.String("item_id", item.ID),
					zap.String("kind", item.Kind),
					zap.Int("retries", item.Retries),
					zap.Error(err))
				if err := p.store.Remove(item); err != nil {
					p.logger.Warn("failed to remove outbox item", zap.Error(err))
				}
				continue
			}

			p.logger.Warn("mail retry failed",
				zap.String("item_id", item.ID),
				zap.Int("retries", item.Retries),
				zap.Error(err))
			if err := p.store.Requeue(item); err != nil {
				p.logger.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		if err := p.store.Remove(item); err != nil {
			p.logger.Warn("failed to purge delivered outbox item", zap.Error(err))
		}
	}

	removed, err := p.store.Cleanup(time.Now().Add(-p.cfg.Retention))
	if err != nil {
		return err
	}
	if removed > 0 {
		p.logger.Warn("expired undelivered mail", zap.Int("count", removed))
	}
	return nil
}

// Deliver attempts to send the item now and falls back to the outbox.
func (p *OutboxProcessor) Deliver(ctx context.Context, item buffer.Item) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("outbox processor not configured")
	}

	err := p.send(ctx, item)
	if err == nil {
		return nil
	}
	p.logger.Warn("immediate send failed, queueing mail",
		zap.String("kind", item.Kind),
		zap.Error(err))
	item.LastError = err.Error()
	return p.store.Enqueue(item)
}

// Size returns the number of mails awaiting retry.
func (p *OutboxProcessor) Size() int {
	if p == nil || p.store == nil {
		return 0
	}
	size, err := p.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (p *OutboxProcessor) send(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.sender == nil {
		return fmt.Errorf("mail sender not configured")
	}

	var msg mailjet.Message
	if err := json.Unmarshal(item.Data, &msg); err != nil {
		return err
	}
	return p.sender.Send(ctx, msg)
}
