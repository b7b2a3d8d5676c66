package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "engcalc:session:" // engcalc:session:{id} -> Session JSON

// RedisSessionStore keeps sessions in redis with a TTL matching their expiry.
// Expiry is still checked against the clock on read.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *redis.Client, opts ...Option) *RedisSessionStore {
	o := buildOptions(opts)
	return &RedisSessionStore{client: client, now: o.now}
}

func (r *RedisSessionStore) key(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	s := Session{ID: id, UserID: userID, ExpiresAt: r.now().Add(SessionTTL)}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	// NX guards against reusing a live id.
	ok, err := r.client.SetNX(ctx, r.key(id), data, SessionTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("create session: id collision")
	}
	return &s, nil
}

func (r *RedisSessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.Expired(r.now()) {
		if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisSessionStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}
