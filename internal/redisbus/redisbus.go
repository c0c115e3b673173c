// Package redisbus shares batch control and stored-posting events through Redis.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

const (
	DefaultStopKey       = "job-intake:stop"
	DefaultEventsChannel = "job-intake:events"

	EventPostingStored = "POSTING_STORED"

	stopTTL = time.Hour
)

// Config holds the connection and key names.
type Config struct {
	URL           string `mapstructure:"url"`
	StopKey       string `mapstructure:"stop-key"`
	EventsChannel string `mapstructure:"events-channel"`
}

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Event is published after a posting has been stored.
type Event struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Company  string  `json:"company"`
	Portal   string  `json:"portal,omitempty"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score"`
	Priority string  `json:"priority"`
}

// Bus implements the stop signal and event publishing on top of a Redis client.
type Bus struct {
	client  client
	stopKey string
	channel string
	logger  *zap.Logger
}

// Connect parses cfg.URL and verifies connectivity.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Bus, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newBus(rdb, cfg, logger), nil
}

func newBus(c client, cfg Config, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StopKey == "" {
		cfg.StopKey = DefaultStopKey
	}
	if cfg.EventsChannel == "" {
		cfg.EventsChannel = DefaultEventsChannel
	}
	return &Bus{client: c, stopKey: cfg.StopKey, channel: cfg.EventsChannel, logger: logger}
}

// StopRequested consumes the stop key. Read errors are logged and never stop a run.
func (b *Bus) StopRequested(ctx context.Context) bool {
	val, err := b.client.Get(ctx, b.stopKey).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		b.logger.Warn("reading stop key failed", zap.String("key", b.stopKey), zap.Error(err))
		return false
	}

	if v := strings.TrimSpace(strings.ToLower(val)); v == "" || v == "0" || v == "false" {
		return false
	}

	if err := b.client.Del(ctx, b.stopKey).Err(); err != nil {
		b.logger.Warn("clearing stop key failed", zap.String("key", b.stopKey), zap.Error(err))
	}
	b.logger.Info("stop key found", zap.String("key", b.stopKey))
	return true
}

// RequestStop asks whichever process is running a batch to stop after its current cycle.
func (b *Bus) RequestStop(ctx context.Context) error {
	if err := b.client.Set(ctx, b.stopKey, "1", stopTTL).Err(); err != nil {
		return fmt.Errorf("set stop key: %w", err)
	}
	return nil
}

// Publish announces a stored posting on the events channel.
func (b *Bus) Publish(ctx context.Context, p *posting.Posting) error {
	payload, err := json.Marshal(Event{
		Type:     EventPostingStored,
		ID:       p.ID,
		Title:    p.Title,
		Company:  p.Company,
		Portal:   p.Portal,
		URL:      p.URL,
		Score:    p.Score,
		Priority: p.Priority,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", b.channel, err)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.client.Close()
}
