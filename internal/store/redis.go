package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/huddlechat/huddle/internal/models"
)

const (
	messagesKey = "chat:messages"
	groupKey    = "chat:group"
)

// RedisStore handles Redis operations for the message log and group metadata.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for middleware that shares the
// connection (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Append stores a message in the sorted set, scored by its timestamp.
func (s *RedisStore) Append(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = s.client.ZAdd(ctx, messagesKey, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	// Opportunistic purge keeps the set bounded without waiting for the
	// janitor tick.
	cutoff := time.Now().Add(-RetentionWindow).UnixMilli()
	s.client.ZRemRangeByScore(ctx, messagesKey, "-inf", fmt.Sprintf("(%d", cutoff))

	return nil
}

// Recent returns up to limit of the newest messages inside the retention
// window, oldest first. The score range excludes expired entries even when
// they have not been purged yet.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	cutoff := time.Now().Add(-RetentionWindow).UnixMilli()

	// Newest first, then reversed into chronological order.
	results, err := s.client.ZRevRangeByScore(ctx, messagesKey, &redis.ZRangeBy{
		Min:   fmt.Sprintf("%d", cutoff),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(results[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// Purge removes messages older than the retention window.
func (s *RedisStore) Purge(ctx context.Context) error {
	cutoff := time.Now().Add(-RetentionWindow).UnixMilli()
	return s.client.ZRemRangeByScore(ctx, messagesKey, "-inf", fmt.Sprintf("(%d", cutoff)).Err()
}

// LoadGroup retrieves the stored group metadata, or nil if none is stored.
func (s *RedisStore) LoadGroup(ctx context.Context) (*models.Group, error) {
	data, err := s.client.Get(ctx, groupKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	g := &models.Group{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGroup stores the group metadata. Last write wins.
func (s *RedisStore) SaveGroup(ctx context.Context, g *models.Group) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, groupKey, data, 0).Err()
}
