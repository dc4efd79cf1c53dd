package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key read by the store
const DefaultKeyPrefix = "watchdog:"

// Store implements the storage.Store interface using Redis
type Store struct {
	client        *redis.Client
	usageLogStore *usageLogStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	cacheSize := cfg.WindowCacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	windows, err := lru.New[int64, windowInfo](cacheSize)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create window cache: %w", err)
	}

	store := &Store{
		client: client,
		usageLogStore: &usageLogStore{
			client:  client,
			keys:    keyspace(prefix),
			windows: windows,
		},
	}

	return store, nil
}

// newClient builds a client from cfg without connecting
func newClient(cfg config.RedisConfig) (*redis.Client, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		// Per-fetch deadlines bound every command, not only the socket timeouts
		ContextTimeoutEnabled: true,
	})

	return client, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// UsageLogs returns the UsageLogStore implementation
func (s *Store) UsageLogs() storage.UsageLogStore {
	return s.usageLogStore
}

// keyspace builds the store's key names
type keyspace string

// logIndex is a sorted set of log ids recorded on date, scored by log id.
func (k keyspace) logIndex(date string) string {
	return fmt.Sprintf("%slogs:%s", k, date)
}

// logPrefix prefixes the per-log hash: log_id, window_id, date, time_spent.
func (k keyspace) logPrefix() string {
	return string(k) + "log:"
}

// window is a hash of window_name and application_id.
func (k keyspace) window(id int64) string {
	return fmt.Sprintf("%swindow:%d", k, id)
}

// application is a hash holding executable_name.
func (k keyspace) application(id string) string {
	return fmt.Sprintf("%sapplication:%s", k, id)
}
