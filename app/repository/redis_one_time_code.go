package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
)

// RedisOneTimeCodeRepository stores each code as a JSON value under
// "<prefix>:<email>" with a native expiry.
type RedisOneTimeCodeRepository struct {
	client redis.Cmdable
	prefix string
}

func NewRedisOneTimeCodeRepository(client redis.Cmdable, prefix string) *RedisOneTimeCodeRepository {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisOneTimeCodeRepository{client: client, prefix: prefix}
}

func (r *RedisOneTimeCodeRepository) Create(ctx context.Context, code *entity.OneTimeCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return err
	}

	ttl := code.ExpiresAt.Sub(code.CreatedAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	created, err := r.client.SetNX(ctx, r.key(code.Email), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateEntry
	}
	return nil
}

func (r *RedisOneTimeCodeRepository) FindByEmail(ctx context.Context, email string) (*entity.OneTimeCode, error) {
	payload, err := r.client.Get(ctx, r.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	code := &entity.OneTimeCode{}
	if err = json.Unmarshal(payload, code); err != nil {
		return nil, err
	}
	return code, nil
}

func (r *RedisOneTimeCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.client.Del(ctx, r.key(email)).Err()
}

func (r *RedisOneTimeCodeRepository) key(email string) string {
	return r.prefix + ":" + email
}
