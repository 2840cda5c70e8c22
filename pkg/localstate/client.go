// Package localstate stores per-user UI state in Redis: sessions,
// favorites, read notifications, dismissed review prompts and the
// short-lived order snapshots used between checkout and delivery.
package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edostavka/backend/pkg/config"
)

const (
	keyNamespace            = "ed"
	sessionPrefix           = "session"
	favoritesPrefix         = "favorites"
	dismissedReviewsPrefix  = "dismissed_reviews"
	readNotificationsPrefix = "read_notifications"
	thankYouPrefix          = "thank_you"
	activeOrderPrefix       = "active_order"
	reviewPromptPrefix      = "review_prompt"
	notificationsPrefix     = "notifications"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("localstate: key not found")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	SRem(context.Context, string, ...any) *redis.IntCmd
	SMembers(context.Context, string) *redis.StringSliceCmd
	SIsMember(context.Context, string, any) *redis.BoolCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the storefront.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("localstate client not initialized")
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns the string value stored at key, or ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("localstate client not initialized")
	}
	val, err := c.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errors.New("localstate client not initialized")
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// SetJSON marshals value and stores it with an optional TTL.
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// GetJSON loads the value stored at key into dest, or returns ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// AddMember adds members to the set stored at key.
func (c *Client) AddMember(ctx context.Context, key string, members ...any) error {
	if c.store == nil {
		return errors.New("localstate client not initialized")
	}
	return c.store.SAdd(ctx, key, members...).Err()
}

// RemoveMember removes members from the set stored at key.
func (c *Client) RemoveMember(ctx context.Context, key string, members ...any) error {
	if c.store == nil {
		return errors.New("localstate client not initialized")
	}
	return c.store.SRem(ctx, key, members...).Err()
}

// Members returns all members of the set stored at key.
func (c *Client) Members(ctx context.Context, key string) ([]string, error) {
	if c.store == nil {
		return nil, errors.New("localstate client not initialized")
	}
	return c.store.SMembers(ctx, key).Result()
}

// HasMember reports whether member is part of the set stored at key.
func (c *Client) HasMember(ctx context.Context, key string, member any) (bool, error) {
	if c.store == nil {
		return false, errors.New("localstate client not initialized")
	}
	return c.store.SIsMember(ctx, key, member).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("localstate client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("localstate client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// SessionKey builds the key holding a session token's payload.
func (c *Client) SessionKey(token string) string {
	return c.buildKey(sessionPrefix, token)
}

// FavoritesKey builds the key for a user's favorite product set.
func (c *Client) FavoritesKey(userID string) string {
	return c.buildKey(favoritesPrefix, userID)
}

// DismissedReviewsKey builds the key for order IDs whose review prompt was dismissed.
func (c *Client) DismissedReviewsKey(userID string) string {
	return c.buildKey(dismissedReviewsPrefix, userID)
}

// ReadNotificationsKey builds the key for notification IDs the user has seen.
func (c *Client) ReadNotificationsKey(userID string) string {
	return c.buildKey(readNotificationsPrefix, userID)
}

// ThankYouKey builds the key for the short-lived post-checkout snapshot.
func (c *Client) ThankYouKey(userID string) string {
	return c.buildKey(thankYouPrefix, userID)
}

// ActiveOrderKey builds the key for the order the user is currently tracking.
func (c *Client) ActiveOrderKey(userID string) string {
	return c.buildKey(activeOrderPrefix, userID)
}

// ReviewPromptKey builds the key for the delivered order awaiting review.
func (c *Client) ReviewPromptKey(userID string) string {
	return c.buildKey(reviewPromptPrefix, userID)
}

// NotificationsCacheKey builds the key for the prefetched notification feed.
func (c *Client) NotificationsCacheKey(userID string) string {
	return c.buildKey(notificationsPrefix, userID)
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
