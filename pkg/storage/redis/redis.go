// Package redis provides a Redis-backed session store. Sessions are stored as
// JSON with a sliding TTL and indexed per user in a sorted set.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/storage"
)

const (
	// DefaultTTL is how long an untouched session is kept.
	DefaultTTL = 30 * 24 * time.Hour

	// DefaultPrefix namespaces every key the driver writes.
	DefaultPrefix = "haven"
)

// Config holds configuration for the Redis session driver.
type Config struct {
	// Addr is host:port. A redis:// URL is also accepted.
	Addr     string
	Password string
	DB       int

	// TTL defaults to DefaultTTL. Every write renews it.
	TTL time.Duration

	// Prefix defaults to DefaultPrefix.
	Prefix string
}

// SessionDriver implements storage.SessionDriver on Redis.
type SessionDriver struct {
	Client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewSessionDriver connects to Redis and verifies the connection.
func NewSessionDriver(ctx context.Context, c Config, logger *slog.Logger) (*SessionDriver, error) {
	if c.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if parsed, err := redis.ParseURL(c.Addr); err == nil {
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	d := &SessionDriver{
		Client: client,
		ttl:    c.TTL,
		prefix: c.Prefix,
		logger: logger,
	}
	if d.ttl <= 0 {
		d.ttl = DefaultTTL
	}
	if d.prefix == "" {
		d.prefix = DefaultPrefix
	}

	logger.Info("connected to redis session store", "addr", opts.Addr, "db", opts.DB)
	return d, nil
}

func (d *SessionDriver) sessionKey(id string) string {
	return d.prefix + ":session:" + id
}

func (d *SessionDriver) userKey(userID string) string {
	return d.prefix + ":user:" + userID + ":sessions"
}

// PutSession stores a session and renews its TTL.
func (d *SessionDriver) PutSession(ctx context.Context, s *chat.Session) error {
	if s == nil {
		return errors.New("cannot store nil session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = d.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, d.sessionKey(s.ID), data, d.ttl)
		pipe.ZAdd(ctx, d.userKey(s.UserID), redis.Z{
			Score:  float64(s.UpdatedAt.UnixNano()),
			Member: s.ID,
		})
		pipe.Expire(ctx, d.userKey(s.UserID), d.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not store session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (d *SessionDriver) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	data, err := d.Client.Get(ctx, d.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.NotFoundError{Kind: storage.KindSession, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s chat.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// ListSessions returns a user's sessions, most recently updated first.
// Index members whose session has expired are pruned.
func (d *SessionDriver) ListSessions(ctx context.Context, userID string) ([]*chat.Session, error) {
	ids, err := d.Client.ZRevRange(ctx, d.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []*chat.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.sessionKey(id)
	}

	values, err := d.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make([]*chat.Session, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var s chat.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", ids[i], err)
		}
		sessions = append(sessions, &s)
	}

	if len(expired) > 0 {
		if err := d.Client.ZRem(ctx, d.userKey(userID), expired...).Err(); err != nil {
			d.logger.Warn("failed to prune expired sessions", "user_id", userID, "error", err)
		}
	}
	return sessions, nil
}

// DeleteSession removes a session and its index entry.
func (d *SessionDriver) DeleteSession(ctx context.Context, id string) error {
	s, err := d.GetSession(ctx, id)
	if err != nil {
		return err
	}

	_, err = d.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, d.sessionKey(id))
		pipe.ZRem(ctx, d.userKey(s.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (d *SessionDriver) Close() error {
	return d.Client.Close()
}

var _ storage.SessionDriver = (*SessionDriver)(nil)
