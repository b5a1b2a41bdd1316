package repository

import (
	"context"
	"time"

	"github.com/sandpiper/backend/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}

// TokenRepository stores one-time tokens mapping to a person id.
type TokenRepository interface {
	Issue(ctx context.Context, purpose domain.TokenPurpose, personID string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, purpose domain.TokenPurpose, token string) (string, error)
}
