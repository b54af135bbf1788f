// Package redis implements ports.SessionStore on Redis, for deployments
// where dialogue sessions must survive a process restart.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/telemart/telemart/pkg/domain"
)

// Sessions stores dialogue sessions as JSON values with a TTL, plus a ZSET
// index for listing. Redis expiry is a backstop; the session manager's idle
// sweep remains the authoritative purge.
type Sessions struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the store.
type Option func(*Sessions)

// WithTTL sets the expiration for stored sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sessions) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sessions) { s.prefix = prefix }
}

// New creates a store backed by a fresh client for the given address.
func New(addr, password string, db int, opts ...Option) *Sessions {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sessions {
	s := &Sessions{
		client: client,
		prefix: "telemart:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *Sessions) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session and refreshes its index entry.
func (s *Sessions) Save(ctx context.Context, userID int64, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Index score is the expiry instant so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, effectively no expiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(userID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: strconv.FormatInt(userID, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves the session or domain.ErrSessionNotFound.
func (s *Sessions) Load(ctx context.Context, userID int64) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes the session and its index entry.
func (s *Sessions) Delete(ctx context.Context, userID int64) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(userID))
	pipe.ZRem(ctx, s.indexKey(), strconv.FormatInt(userID, 10))
	_, err := pipe.Exec(ctx)
	return err
}

// List returns counterparties with a live session, pruning expired index
// entries first.
func (s *Sessions) List(ctx context.Context) ([]int64, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue // skip foreign keys in the index
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close closes the underlying client.
func (s *Sessions) Close() error {
	return s.client.Close()
}
