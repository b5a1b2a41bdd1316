package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandpiper/backend/internal/config"
	"github.com/sandpiper/backend/internal/infrastructure/buffer"
	"github.com/sandpiper/backend/internal/infrastructure/mailjet"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []mailjet.Message
}

func (f *fakeSender) Send(_ context.Context, messages ...mailjet.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func newProcessor(t *testing.T, sender Sender, maxRetries int) (*OutboxProcessor, *buffer.Store) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	if err != nil {
		t.Fatalf("buffer.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewOutboxProcessor(store, sender, nil, ProcessorConfig{MaxRetries: maxRetries}), store
}

func builder() *mailjet.Client {
	return mailjet.NewClient(config.MailConfig{
		APIKey:                  "key",
		APISecret:               "secret",
		SenderEmail:             "sample_project@ecortest.com",
		SenderName:              "Sandpiper",
		WelcomeTemplateID:       6410451,
		ResetPasswordTemplateID: 6410454,
	}, nil, nil)
}

func TestBridgeSendsImmediately(t *testing.T) {
	sender := &fakeSender{}
	processor, _ := newProcessor(t, sender, 3)
	bridge := NewOutboxBridge(processor, builder())

	if err := bridge.SendWelcome(context.Background(), "p1", "ada@example.com", "Ada Lovelace", "http://app/verify"); err != nil {
		t.Fatalf("SendWelcome: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent: got %d, want 1", len(sender.sent))
	}
	if got := sender.sent[0].Variables["confirmation_link"]; got != "http://app/verify" {
		t.Errorf("confirmation_link: got %q", got)
	}
	if processor.Size() != 0 {
		t.Errorf("Size: got %d, want 0", processor.Size())
	}
}

func TestBridgeQueuesOnFailureAndDrainDelivers(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider down")}
	processor, store := newProcessor(t, sender, 3)
	bridge := NewOutboxBridge(processor, builder())

	if err := bridge.SendPasswordReset(context.Background(), "p1", "ada@example.com", "http://app/reset"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	items, _ := store.GetBatch(10)
	if len(items) != 1 {
		t.Fatalf("outbox: got %d items, want 1", len(items))
	}
	if items[0].Kind != buffer.KindResetPassword || items[0].LastError != "provider down" {
		t.Errorf("queued item: got kind=%q error=%q", items[0].Kind, items[0].LastError)
	}

	sender.err = nil
	if err := processor.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if processor.Size() != 0 {
		t.Errorf("Size after drain: got %d, want 0", processor.Size())
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != mailjet.ResetPasswordSubject {
		t.Errorf("sent: got %+v", sender.sent)
	}
}

func TestDrainDropsAfterMaxRetries(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider down")}
	processor, store := newProcessor(t, sender, 2)

	payload, _ := json.Marshal(builder().WelcomeMessage("ada@example.com", "", "l"))
	if err := store.Enqueue(buffer.Item{Kind: buffer.KindWelcome, Data: payload}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := processor.Drain(context.Background()); err != nil {
		t.Fatalf("first Drain: %v", err)
	}
	items, _ := store.GetBatch(10)
	if len(items) != 1 || items[0].Retries != 1 {
		t.Fatalf("after first drain: got %+v, want one item with 1 retry", items)
	}

	if err := processor.Drain(context.Background()); err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if processor.Size() != 0 {
		t.Errorf("Size: got %d, want 0 after max retries", processor.Size())
	}
}

func TestDrainExpiresOldItems(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider down")}
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	if err != nil {
		t.Fatalf("buffer.Open: %v", err)
	}
	defer store.Close()
	processor := NewOutboxProcessor(store, sender, nil, ProcessorConfig{MaxRetries: 10, Retention: time.Hour})

	if err := store.Enqueue(buffer.Item{Kind: buffer.KindWelcome, Data: []byte(`{}`), Timestamp: time.Now().Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Only the reset mail is retried; the retry refreshes its timestamp.
	processor.cfg.BatchSize = 1
	if err := store.Enqueue(buffer.Item{Kind: buffer.KindResetPassword, Data: []byte(`{}`), Timestamp: time.Now().Add(-3 * time.Hour)}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := processor.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	items, _ := store.GetBatch(10)
	if len(items) != 1 || items[0].Kind != buffer.KindResetPassword {
		t.Errorf("remaining: got %+v, want only the retried reset mail", items)
	}
}

func TestBridgeRejectsMissingRecipient(t *testing.T) {
	processor, _ := newProcessor(t, &fakeSender{}, 1)
	bridge := NewOutboxBridge(processor, builder())
	if err := bridge.SendWelcome(context.Background(), "p1", "", "", "l"); err == nil {
		t.Error("SendWelcome: got nil error, want invalid payload")
	}
}
