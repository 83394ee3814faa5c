package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// usersKey is the hash holding the user list: field = username,
// value = credential hash.
const usersKey = "users"

// RedisUserStore keeps the user list in a redis hash.
type RedisUserStore struct {
	client *redis.Client
}

func NewRedisUserStore(ctx context.Context, addr string) (*RedisUserStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisUserStore{client: client}, nil
}

func (that *RedisUserStore) Load(ctx context.Context) ([]UserRecord, error) {
	fields, err := that.client.HGetAll(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user list: %w", err)
	}

	records := make([]UserRecord, 0, len(fields))
	for username, password := range fields {
		records = append(records, UserRecord{Username: username, Password: password})
	}

	return records, nil
}

func (that *RedisUserStore) Append(ctx context.Context, record UserRecord) error {
	if err := that.client.HSet(ctx, usersKey, record.Username, record.Password).Err(); err != nil {
		return fmt.Errorf("failed to append user: %w", err)
	}

	return nil
}

func (that *RedisUserStore) Close() error {
	return that.client.Close()
}
