package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the per-session coupon selection.
type Store interface {
	// GetCoupon returns nil, nil when nothing is selected.
	GetCoupon(ctx context.Context, key string) (*CouponSelection, error)
	SetCoupon(ctx context.Context, key string, sel CouponSelection) error
	ClearCoupon(ctx context.Context, key string) error
}

// RedisClient is the part of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func couponKey(key string) string {
	return fmt.Sprintf("session:%s:coupon", key)
}

func (s *RedisStore) GetCoupon(ctx context.Context, key string) (*CouponSelection, error) {
	if key == "" {
		return nil, ErrNoSessionKey
	}

	data, err := s.client.Get(ctx, couponKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var sel CouponSelection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("unmarshal coupon selection failed: %w", err)
	}
	return &sel, nil
}

func (s *RedisStore) SetCoupon(ctx context.Context, key string, sel CouponSelection) error {
	if key == "" {
		return ErrNoSessionKey
	}
	if strings.TrimSpace(sel.Code) == "" {
		return ErrEmptyCode
	}

	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal coupon selection failed: %w", err)
	}
	if err := s.client.Set(ctx, couponKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearCoupon(ctx context.Context, key string) error {
	if key == "" {
		return ErrNoSessionKey
	}
	if err := s.client.Del(ctx, couponKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

type memoryEntry struct {
	sel       CouponSelection
	expiresAt time.Time
}

// MemoryStore is used when no redis address is configured. Entries expire
// lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) GetCoupon(_ context.Context, key string) (*CouponSelection, error) {
	if key == "" {
		return nil, ErrNoSessionKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	sel := e.sel
	return &sel, nil
}

func (s *MemoryStore) SetCoupon(_ context.Context, key string, sel CouponSelection) error {
	if key == "" {
		return ErrNoSessionKey
	}
	if strings.TrimSpace(sel.Code) == "" {
		return ErrEmptyCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{sel: sel, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) ClearCoupon(_ context.Context, key string) error {
	if key == "" {
		return ErrNoSessionKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
