package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

const redisKeyPrefix = "session:"

// RedisStore checkpoints conversations in Redis, one JSON value per
// session. No TTL is set; sessions live until externally reset.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &ports.StorageError{Op: "connect to redis", Err: err}
	}
	return &RedisStore{client: client}, nil
}

// Load returns the conversation for sessionID; a missing key loads as an
// empty conversation.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (entities.Conversation, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &ports.StorageError{Op: "load session", Err: err}
	}

	var conv entities.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, &ports.StorageError{Op: "decode session", Err: fmt.Errorf("session %s: %w", sessionID, err)}
	}
	return conv, nil
}

// Save persists the conversation under sessionID.
func (s *RedisStore) Save(ctx context.Context, sessionID string, conv entities.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return &ports.StorageError{Op: "encode session", Err: err}
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sessionID, data, 0).Err(); err != nil {
		return &ports.StorageError{Op: "save session", Err: err}
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
