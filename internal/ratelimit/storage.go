package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
)

const keyPrefix = "ticket-bridge:ratelimit:"

// Storage backs the Fiber rate limiter with Redis so limits survive restarts
// and hold across replicas. It implements fiber.Storage.
type Storage struct {
	client *redis.Client
}

// NewStorage connects to Redis using the provided configuration. Returns nil
// when no address is configured; the limiter then falls back to its
// in-memory store.
func NewStorage(cfg config.RedisConfig, logger *zap.Logger) *Storage {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Storage{client: client}
}

// Get retrieves a value; a missing key yields (nil, nil) per the
// fiber.Storage contract.
func (s *Storage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value with the given expiration; zero means no expiry.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), keyPrefix+key, val, exp).Err()
}

// Delete removes a key.
func (s *Storage) Delete(key string) error {
	return s.client.Del(context.Background(), keyPrefix+key).Err()
}

// Reset drops every limiter key without touching the rest of the database.
func (s *Storage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the client.
func (s *Storage) Close() error {
	return s.client.Close()
}
