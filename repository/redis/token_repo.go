package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

type tokenRepository struct {
	client *redislib.Client
}

// NewTokenRepository stores one-time tokens as "token:<purpose>:<token>" keys.
func NewTokenRepository(client *redislib.Client) repository.TokenRepository {
	return &tokenRepository{client: client}
}

func (r *tokenRepository) Issue(ctx context.Context, purpose domain.TokenPurpose, personID string, ttl time.Duration) (string, error) {
	if personID == "" {
		return "", domain.ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	token := domain.NewID()
	if err := r.client.Set(ctx, key(purpose, token), personID, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume returns the person id bound to the token and deletes it.
func (r *tokenRepository) Consume(ctx context.Context, purpose domain.TokenPurpose, token string) (string, error) {
	if token == "" {
		return "", domain.ErrTokenNotFound
	}
	personID, err := r.client.GetDel(ctx, key(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", domain.ErrTokenNotFound
		}
		return "", err
	}
	return personID, nil
}

func key(purpose domain.TokenPurpose, token string) string {
	return fmt.Sprintf("token:%s:%s", purpose, token)
}
