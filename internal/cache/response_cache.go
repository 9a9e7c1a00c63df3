// Package cache caches JSON list responses in Redis.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheName = "response_cache"

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// UserIDFunc returns the caller id used to partition cached responses.
type UserIDFunc func(c echo.Context) string

// ResponseCache caches successful GET responses for ttl.
// Adds X-Cache: HIT/MISS header.
// Cache key is: response:{path}:{query_string}:{user_id}
func ResponseCache(store Store, ttl time.Duration, userID UserIDFunc) echo.MiddlewareFunc {
	m := metrics.Get()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if store == nil || req.Method != http.MethodGet {
				return next(c)
			}

			key := cacheKey(req.URL.Path, req.URL.RawQuery, userID(c))
			ctx := req.Context()

			cached, err := store.Get(ctx, key)
			if err == nil {
				m.CacheHitsTotal.WithLabelValues(cacheName).Inc()
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(cached))
			}
			if !errors.Is(err, ErrMiss) {
				logger.Log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
			}
			m.CacheMissesTotal.WithLabelValues(cacheName).Inc()

			res := c.Response()
			recorder := &bodyRecorder{ResponseWriter: res.Writer, body: &bytes.Buffer{}}
			res.Writer = recorder
			res.Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if res.Status >= 200 && res.Status < 300 && recorder.body.Len() > 0 {
				if err := store.SetEx(ctx, key, recorder.body.String(), ttl); err != nil {
					logger.Log.Debug("failed to write response to cache", zap.String("key", key), zap.Error(err))
				}
			}
			return nil
		}
	}
}

func cacheKey(path, query, userID string) string {
	key := fmt.Sprintf("response:%s", path)
	if query != "" {
		key = fmt.Sprintf("%s:%s", key, query)
	}
	if userID != "" {
		key = fmt.Sprintf("%s:%s", key, userID)
	}
	return key
}

// bodyRecorder tees the response body into a buffer.
type bodyRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
