package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

// RedisStore keeps handles in Redis keyed by document id with a TTL equal
// to the handle lifetime, so expiry needs no sweeper of its own.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func handleKey(docID id.DocumentID) string {
	return "review-handle:" + docID.String()
}

type redisHandle struct {
	RequesterID string    `json:"requester_id"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *RedisStore) Save(ctx context.Context, h ReviewHandle, ttl time.Duration) error {
	payload, err := json.Marshal(redisHandle{
		RequesterID: h.RequesterID.String(),
		URL:         h.URL,
		ExpiresAt:   h.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal handle: %w", err)
	}
	if err := s.client.Set(ctx, handleKey(h.DocumentID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save handle: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	return nil
}

func (s *RedisStore) Active(ctx context.Context, docID id.DocumentID) (*ReviewHandle, error) {
	raw, err := s.client.Get(ctx, handleKey(docID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("handle for %s: %w", docID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load handle: %w", errors.Join(err, sentinel.ErrUnavailable))
	}

	var stored redisHandle
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal handle: %w", err)
	}
	requester, err := id.ParseMemberID(stored.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("unmarshal handle requester: %w", err)
	}
	return &ReviewHandle{
		DocumentID:  docID,
		RequesterID: requester,
		URL:         stored.URL,
		ExpiresAt:   stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, docID id.DocumentID) error {
	if err := s.client.Del(ctx, handleKey(docID)).Err(); err != nil {
		return fmt.Errorf("invalidate handle: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	return nil
}
