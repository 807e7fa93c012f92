// Package caching provides injectable TTL caches in front of the catalog
// and questionnaire readers. Caches are constructor-injected components,
// never ambient package state, so the engine stays a pure function of its
// inputs under test.
package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

const redisKeyPrefix = "triage:catalog:"

// CatalogCacheConfig configures the two cache tiers.
type CatalogCacheConfig struct {
	// RedisClient enables the distributed tier when non-nil.
	RedisClient *redis.Client
	// MemoryTTL bounds staleness of the in-memory tier.
	MemoryTTL time.Duration
	// RedisTTL bounds staleness of the Redis tier.
	RedisTTL time.Duration
	// MaxEntries caps the in-memory LRU.
	MaxEntries int
}

// CacheStats tracks cache performance.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// HitRatio returns hits over total lookups, or 0 before any lookup.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CatalogCache decorates a CatalogReader with an in-memory LRU tier and
// an optional Redis tier. Entries are TTL-stamped; expired entries are
// treated as misses and refetched from the source.
type CatalogCache struct {
	source domain.CatalogReader
	logger *logrus.Logger

	memory    *lru.Cache
	redis     *redis.Client
	memoryTTL time.Duration
	redisTTL  time.Duration

	statsMu sync.RWMutex
	stats   CacheStats
}

type cacheEntry struct {
	value  interface{}
	expiry time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}

// NewCatalogCache creates a catalog cache in front of source.
func NewCatalogCache(source domain.CatalogReader, config CatalogCacheConfig, logger *logrus.Logger) (*CatalogCache, error) {
	if config.MemoryTTL == 0 {
		config.MemoryTTL = 15 * time.Minute
	}
	if config.RedisTTL == 0 {
		config.RedisTTL = 6 * time.Hour
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = 512
	}

	memory, err := lru.New(config.MaxEntries)
	if err != nil {
		return nil, err
	}

	return &CatalogCache{
		source:    source,
		logger:    logger,
		memory:    memory,
		redis:     config.RedisClient,
		memoryTTL: config.MemoryTTL,
		redisTTL:  config.RedisTTL,
	}, nil
}

// ListActiveExercises returns the cached exercise catalog, fetching from
// the source on miss.
func (c *CatalogCache) ListActiveExercises(ctx context.Context) ([]domain.ExerciseRecord, error) {
	const key = "exercises"

	if cached, ok := c.fromMemory(key); ok {
		return cached.([]domain.ExerciseRecord), nil
	}
	var exercises []domain.ExerciseRecord
	if c.fromRedis(ctx, key, &exercises) {
		c.toMemory(key, exercises)
		return exercises, nil
	}

	exercises, err := c.source.ListActiveExercises(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, exercises)
	return exercises, nil
}

// ListActiveRoutines returns the cached routine catalog.
func (c *CatalogCache) ListActiveRoutines(ctx context.Context) ([]domain.RoutineRecord, error) {
	const key = "routines"

	if cached, ok := c.fromMemory(key); ok {
		return cached.([]domain.RoutineRecord), nil
	}
	var routines []domain.RoutineRecord
	if c.fromRedis(ctx, key, &routines) {
		c.toMemory(key, routines)
		return routines, nil
	}

	routines, err := c.source.ListActiveRoutines(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, routines)
	return routines, nil
}

// GetRoutineItems returns the cached items of one routine.
func (c *CatalogCache) GetRoutineItems(ctx context.Context, routineID string) ([]domain.RoutineItem, error) {
	key := "routine_items:" + routineID

	if cached, ok := c.fromMemory(key); ok {
		return cached.([]domain.RoutineItem), nil
	}
	var items []domain.RoutineItem
	if c.fromRedis(ctx, key, &items) {
		c.toMemory(key, items)
		return items, nil
	}

	items, err := c.source.GetRoutineItems(ctx, routineID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, items)
	return items, nil
}

// FindProtocol returns the cached protocol for a key. "Not found" is not
// cached: a protocol may be registered at any time.
func (c *CatalogCache) FindProtocol(ctx context.Context, protocolKey string) (*domain.ProtocolRecord, error) {
	key := "protocol:" + protocolKey

	if cached, ok := c.fromMemory(key); ok {
		return cached.(*domain.ProtocolRecord), nil
	}
	var decoded domain.ProtocolRecord
	if c.fromRedis(ctx, key, &decoded) {
		c.toMemory(key, &decoded)
		return &decoded, nil
	}

	protocol, err := c.source.FindProtocol(ctx, protocolKey)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, protocol)
	return protocol, nil
}

// GetPhaseExercises returns the cached exercise set of one protocol phase.
func (c *CatalogCache) GetPhaseExercises(ctx context.Context, protocolID string, phaseNumber int) ([]domain.PhaseExercise, error) {
	key := fmt.Sprintf("phase:%s:%d", protocolID, phaseNumber)

	if cached, ok := c.fromMemory(key); ok {
		return cached.([]domain.PhaseExercise), nil
	}
	var phaseExercises []domain.PhaseExercise
	if c.fromRedis(ctx, key, &phaseExercises) {
		c.toMemory(key, phaseExercises)
		return phaseExercises, nil
	}

	phaseExercises, err := c.source.GetPhaseExercises(ctx, protocolID, phaseNumber)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, phaseExercises)
	return phaseExercises, nil
}

// Invalidate drops every cached entry from the memory tier.
func (c *CatalogCache) Invalidate() {
	c.memory.Purge()
}

// Stats returns a snapshot of cache performance counters.
func (c *CatalogCache) Stats() CacheStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *CatalogCache) fromMemory(key string) (interface{}, bool) {
	if value, ok := c.memory.Get(key); ok {
		if entry, ok := value.(*cacheEntry); ok && !entry.isExpired() {
			c.recordHit()
			return entry.value, true
		}
		c.memory.Remove(key)
	}
	c.recordMiss()
	return nil, false
}

func (c *CatalogCache) toMemory(key string, value interface{}) {
	c.memory.Add(key, &cacheEntry{
		value:  value,
		expiry: time.Now().Add(c.memoryTTL),
	})
}

func (c *CatalogCache) fromRedis(ctx context.Context, key string, target interface{}) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		c.redis.Del(ctx, redisKeyPrefix+key)
		return false
	}
	return true
}

func (c *CatalogCache) store(ctx context.Context, key string, value interface{}) {
	c.toMemory(key, value)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+key, data, c.redisTTL).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write cache entry to Redis")
	}
}

func (c *CatalogCache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *CatalogCache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}
