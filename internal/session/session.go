// Package session issues opaque bearer tokens for signed-in players.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

const DefaultTTL = 24 * time.Hour

// Store maps tokens to identities.
type Store interface {
	Issue(ctx context.Context, id auth.Identity) (string, error)
	Resolve(ctx context.Context, token string) (auth.Identity, error)
	Revoke(ctx context.Context, token string) error
}

func newToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RedisStore keeps sessions under sess:<token> with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Connect parses a redis:// or rediss:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(token string) string { return "sess:" + strings.TrimSpace(token) }

func (s *RedisStore) Issue(ctx context.Context, id auth.Identity) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.key(token), raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return auth.Identity{}, ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return auth.Identity{}, ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("load session: %w", err)
	}
	var id auth.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return auth.Identity{}, fmt.Errorf("decode session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, s.key(token)).Err()
}

type memEntry struct {
	id      auth.Identity
	expires time.Time
}

// MemoryStore is the single-process fallback when no Redis is configured.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	data      map[string]memEntry
	nextPrune time.Time
}

const memPruneInterval = time.Minute

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, data: make(map[string]memEntry)}
}

func (s *MemoryStore) Issue(_ context.Context, id auth.Identity) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.data[token] = memEntry{id: id, expires: now.Add(s.ttl)}
	return token, nil
}

// pruneLocked drops expired tokens, at most once per memPruneInterval.
func (s *MemoryStore) pruneLocked(now time.Time) {
	if now.Before(s.nextPrune) {
		return
	}
	s.nextPrune = now.Add(memPruneInterval)
	for token, e := range s.data {
		if !now.Before(e.expires) {
			delete(s.data, token)
		}
	}
}

func (s *MemoryStore) Resolve(_ context.Context, token string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[token]
	if !ok {
		return auth.Identity{}, ErrNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.data, token)
		return auth.Identity{}, ErrNotFound
	}
	return e.id, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
