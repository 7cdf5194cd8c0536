package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fableloom/fableloom/pkg/story"
	"github.com/fableloom/fableloom/pkg/storage"
)

// RedisStore implements storage.StoryStore using Redis. Stories are JSON
// values under story:{id}, with message and hint logs as Redis lists and
// the summary and world rules as plain string keys.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ storage.StoryStore = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-backed story store
func NewRedisStore(redisURL string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

func storyKey(id uuid.UUID) string    { return "story:" + id.String() }
func messagesKey(id uuid.UUID) string { return "story:" + id.String() + ":messages" }
func hintsKey(id uuid.UUID) string    { return "story:" + id.String() + ":hints" }
func summaryKey(id uuid.UUID) string  { return "story:" + id.String() + ":summary" }
func rulesKey(id uuid.UUID) string    { return "story:" + id.String() + ":rules" }

const storiesIndexKey = "stories"

// Health and lifecycle

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Story operations

func (r *RedisStore) CreateStory(ctx context.Context, s *story.Story) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	if err := r.client.Set(ctx, storyKey(s.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}
	if err := r.client.SAdd(ctx, storiesIndexKey, s.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index story: %w", err)
	}
	return nil
}

func (r *RedisStore) GetStory(ctx context.Context, id uuid.UUID) (*story.Story, error) {
	data, err := r.client.Get(ctx, storyKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	var s story.Story
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) UpdateStory(ctx context.Context, s *story.Story) error {
	exists, err := r.client.Exists(ctx, storyKey(s.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check story: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("story not found: %s", s.ID)
	}

	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}
	if err := r.client.Set(ctx, storyKey(s.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStore) ListStories(ctx context.Context) ([]*story.Story, error) {
	ids, err := r.client.SMembers(ctx, storiesIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	stories := make([]*story.Story, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Skipping malformed story id in index", "id", raw)
			continue
		}
		s, err := r.GetStory(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			stories = append(stories, s)
		}
	}
	return stories, nil
}

func (r *RedisStore) DeleteStory(ctx context.Context, id uuid.UUID) error {
	exists, err := r.client.Exists(ctx, storyKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check story: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("story not found: %s", id)
	}

	keys := []string{storyKey(id), messagesKey(id), hintsKey(id), summaryKey(id), rulesKey(id)}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if err := r.client.SRem(ctx, storiesIndexKey, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to deindex story: %w", err)
	}
	return nil
}

// Message log

func (r *RedisStore) AppendMessage(ctx context.Context, storyID uuid.UUID, m *story.Message) error {
	length, err := r.client.LLen(ctx, messagesKey(storyID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read message log: %w", err)
	}
	m.Index = int(length)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := r.client.RPush(ctx, messagesKey(storyID), data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *RedisStore) UpdateMessage(ctx context.Context, storyID uuid.UUID, m *story.Message) error {
	msgs, err := r.Messages(ctx, storyID)
	if err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].ID == m.ID {
			m.Index = msgs[i].Index
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			if err := r.client.LSet(ctx, messagesKey(storyID), int64(i), data).Err(); err != nil {
				return fmt.Errorf("failed to update message: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("message not found: %s", m.ID)
}

func (r *RedisStore) Messages(ctx context.Context, storyID uuid.UUID) ([]story.Message, error) {
	items, err := r.client.LRange(ctx, messagesKey(storyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	msgs := make([]story.Message, 0, len(items))
	for _, item := range items {
		var m story.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Hint log

func (r *RedisStore) AppendHint(ctx context.Context, storyID uuid.UUID, h story.Hint) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal hint: %w", err)
	}
	if err := r.client.RPush(ctx, hintsKey(storyID), data).Err(); err != nil {
		return fmt.Errorf("failed to append hint: %w", err)
	}
	return nil
}

func (r *RedisStore) Hints(ctx context.Context, storyID uuid.UUID) ([]story.Hint, error) {
	items, err := r.client.LRange(ctx, hintsKey(storyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load hints: %w", err)
	}

	hints := make([]story.Hint, 0, len(items))
	for _, item := range items {
		var h story.Hint
		if err := json.Unmarshal([]byte(item), &h); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hint: %w", err)
		}
		hints = append(hints, h)
	}
	return hints, nil
}

// Per-story singletons

func (r *RedisStore) Summary(ctx context.Context, storyID uuid.UUID) (string, error) {
	val, err := r.client.Get(ctx, summaryKey(storyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load summary: %w", err)
	}
	return val, nil
}

func (r *RedisStore) SetSummary(ctx context.Context, storyID uuid.UUID, summary string) error {
	if err := r.client.Set(ctx, summaryKey(storyID), summary, 0).Err(); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

func (r *RedisStore) WorldRules(ctx context.Context, storyID uuid.UUID) (string, error) {
	val, err := r.client.Get(ctx, rulesKey(storyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load world rules: %w", err)
	}
	return val, nil
}

func (r *RedisStore) SetWorldRules(ctx context.Context, storyID uuid.UUID, rules string) error {
	if err := r.client.Set(ctx, rulesKey(storyID), rules, 0).Err(); err != nil {
		return fmt.Errorf("failed to save world rules: %w", err)
	}
	return nil
}
