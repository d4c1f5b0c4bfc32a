package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/miradorstack/mirador-roi/internal/cache"
	"github.com/miradorstack/mirador-roi/internal/models"
)

// CachedStore serves repeated window reads from a cache.Provider. Each table has a
// generation counter kept in the cache itself; appends bump it, so every process sharing
// the cache stops reading windows cached before the append.
type CachedStore struct {
	inner  Store
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore decorates inner. A nil provider disables caching.
func NewCachedStore(inner Store, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		inner:  inner,
		cache:  provider,
		ttl:    ttl,
		logger: logger,
	}
}

// Fetch returns cached observations for (table, since) or reads through to the inner store.
func (s *CachedStore) Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error) {
	key, ok := s.windowKey(ctx, table, since)
	var cached []models.Observation
	if ok && s.load(ctx, key, &cached) {
		return cached, nil
	}

	observations, err := s.inner.Fetch(ctx, table, since)
	if err != nil {
		return nil, err
	}
	if ok {
		s.store(ctx, key, observations)
	}
	return observations, nil
}

// FetchCorrelations returns cached roi_correlations rows or reads through to the inner store.
func (s *CachedStore) FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error) {
	key, ok := s.windowKey(ctx, models.TableROICorrelations, since)
	var cached []models.CorrelationRow
	if ok && s.load(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.inner.FetchCorrelations(ctx, since)
	if err != nil {
		return nil, err
	}
	if ok {
		s.store(ctx, key, rows)
	}
	return rows, nil
}

// Append writes through and advances the table's generation.
func (s *CachedStore) Append(ctx context.Context, table models.Table, rows []models.Row) error {
	if err := s.inner.Append(ctx, table, rows); err != nil {
		return err
	}
	if _, err := s.cache.Incr(ctx, generationKey(table)); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("table", string(table)), slog.Any("error", err))
	}
	return nil
}

// Close closes the inner store and the cache.
func (s *CachedStore) Close() error {
	return errors.Join(s.inner.Close(), s.cache.Close())
}

func generationKey(table models.Table) string {
	return "roi:gen:" + string(table)
}

func cacheKey(table models.Table, generation int64, since time.Duration) string {
	return fmt.Sprintf("roi:%s:%d:%d", table, generation, int64(since/time.Second))
}

// windowKey resolves the current generation of table. When the generation cannot be read
// the cache is bypassed for this call.
func (s *CachedStore) windowKey(ctx context.Context, table models.Table, since time.Duration) (string, bool) {
	var generation int64
	payload, err := s.cache.Get(ctx, generationKey(table))
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
	case err != nil:
		s.logger.Warn("cache generation read failed", slog.String("table", string(table)), slog.Any("error", err))
		return "", false
	default:
		generation, err = strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			s.logger.Warn("cache generation invalid", slog.String("table", string(table)), slog.Any("error", err))
			return "", false
		}
	}
	return cacheKey(table, generation, since), true
}

func (s *CachedStore) load(ctx context.Context, key string, out any) bool {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.logger.Warn("cache payload invalid", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (s *CachedStore) store(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
