package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps the server-side logged-in marker in redis, keyed by a random
// session id handed to the client as a cookie.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sid string) string {
	return fmt.Sprintf("session_%s", sid)
}

func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	sid := uuid.NewString()

	if err := s.client.Set(ctx, sessionKey(sid), userID, s.ttl).Err(); err != nil {
		return "", err
	}

	return sid, nil
}

func (s *Store) UserID(ctx context.Context, sid string) (int64, error) {
	val, err := s.client.Get(ctx, sessionKey(sid)).Result()
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(val, 10, 64)
}

// Delete removes the session marker. A missing session is not an error so
// logout stays idempotent.
func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, sessionKey(sid)).Err()
}
