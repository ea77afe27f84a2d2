package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a cached snapshot survives.
const DefaultCacheTTL = 24 * time.Hour

// Cache keeps the last known state so a view can paint before REST answers.
type Cache interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Forget(ctx context.Context, id string) error
	// Recent lists session ids the user has viewed, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]string, error)
}

// RedisCache stores snapshots as JSON with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session cache")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: DefaultCacheTTL}, nil
}

func stateKey(id string) string      { return "igk:session:" + id }
func recentKey(userID string) string { return "igk:recent:" + userID }

func (c *RedisCache) Save(ctx context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, stateKey(st.ID), raw, c.ttl).Err(); err != nil {
		return err
	}
	score := float64(time.Now().UnixNano())
	for _, p := range []*Player{st.White, st.Black} {
		if p == nil || p.ID == "" {
			continue
		}
		key := recentKey(p.ID)
		if err := c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: st.ID}).Err(); err != nil {
			return err
		}
		// 인덱스 키도 스냅샷과 같은 TTL로 갱신
		_ = c.rdb.Expire(ctx, key, c.ttl).Err()
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context, id string) (*State, error) {
	raw, err := c.rdb.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *RedisCache) Forget(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, stateKey(id)).Err()
}

func (c *RedisCache) Recent(ctx context.Context, userID string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := c.rdb.ZRevRange(ctx, recentKey(userID), 0, stop).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// MemoryCache is used when no Redis is configured.
type MemoryCache struct {
	mu     sync.RWMutex
	states map[string]*State
	recent map[string][]string // userID -> session ids, newest last
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{states: make(map[string]*State), recent: make(map[string][]string)}
}

func (m *MemoryCache) Save(_ context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.ID] = st.Clone()
	for _, p := range []*Player{st.White, st.Black} {
		if p == nil || p.ID == "" {
			continue
		}
		list := m.recent[p.ID]
		out := list[:0:0]
		for _, id := range list {
			if id != st.ID {
				out = append(out, id)
			}
		}
		m.recent[p.ID] = append(out, st.ID)
	}
	return nil
}

func (m *MemoryCache) Load(_ context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id].Clone(), nil
}

func (m *MemoryCache) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *MemoryCache) Recent(_ context.Context, userID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.recent[userID]
	out := make([]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
