package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"evmarket/internal/models"
)

// HistoryStore caches a user's session history. The service invalidates the
// key on every create and delete, so cached reads stay exact; the TTL only
// bounds staleness if an invalidation is lost. Lookups miss with redis.Nil.
type HistoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryStore returns a redis-backed store.
func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	return &HistoryStore{client: client, ttl: ttl}
}

func (s *HistoryStore) key(userID int64) string {
	return fmt.Sprintf("sessions:history:%d", userID)
}

// Save caches the full session list for a user.
func (s *HistoryStore) Save(ctx context.Context, userID int64, sessions []models.SessionWithInvoice) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), data, s.ttl).Err()
}

// Get returns the cached list, or redis.Nil on a miss.
func (s *HistoryStore) Get(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	result, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	var sessions []models.SessionWithInvoice
	if err := json.Unmarshal([]byte(result), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Invalidate drops the cached list after a mutation.
func (s *HistoryStore) Invalidate(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
