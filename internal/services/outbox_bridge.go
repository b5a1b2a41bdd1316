package services

import (
	"context"
	"encoding/json"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/internal/infrastructure/buffer"
	"github.com/sandpiper/backend/internal/infrastructure/mailjet"
	"github.com/sandpiper/backend/usecase"
)

// MessageBuilder renders provider messages for each mail kind.
type MessageBuilder interface {
	WelcomeMessage(to, name, confirmationLink string) mailjet.Message
	ResetPasswordMessage(to, resetLink string) mailjet.Message
}

// OutboxBridge exposes the outbox processor as the use case Mailer port.
type OutboxBridge struct {
	processor *OutboxProcessor
	builder   MessageBuilder
}

func NewOutboxBridge(processor *OutboxProcessor, builder MessageBuilder) *OutboxBridge {
	return &OutboxBridge{processor: processor, builder: builder}
}

func (b *OutboxBridge) SendWelcome(ctx context.Context, personID, email, name, confirmationLink string) error {
	if b.builder == nil || email == "" {
		return domain.ErrInvalidPayload
	}
	msg := b.builder.WelcomeMessage(email, name, confirmationLink)
	return b.deliver(ctx, buffer.KindWelcome, personID, email, msg)
}

func (b *OutboxBridge) SendPasswordReset(ctx context.Context, personID, email, resetLink string) error {
	if b.builder == nil || email == "" {
		return domain.ErrInvalidPayload
	}
	msg := b.builder.ResetPasswordMessage(email, resetLink)
	return b.deliver(ctx, buffer.KindResetPassword, personID, email, msg)
}

func (b *OutboxBridge) deliver(ctx context.Context, kind, personID, email string, msg mailjet.Message) error {
	if b.processor == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.processor.Deliver(ctx, buffer.Item{
		PersonID:  personID,
		Kind:      kind,
		Recipient: email,
		Data:      payload,
	})
}

var _ usecase.Mailer = (*OutboxBridge)(nil)
