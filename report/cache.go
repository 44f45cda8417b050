package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clubhours/internal/timeutil"
	"clubhours/worklog"

	"github.com/allegro/bigcache/v3"
	"github.com/sirupsen/logrus"
)

// Source is the part of the repository the cache reads from and listens to.
type Source interface {
	Query(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error)
	Watch(onChange func()) func()
	Revision(ctx context.Context) (int64, error)
}

// Cache memoises Aggregates per fiscal window and store revision. Entries are
// keyed on the revision read at call time, so writes from other processes
// miss the cache. Local writes also drop every entry through Watch.
type Cache struct {
	source Source
	store  *bigcache.BigCache
	log    logrus.FieldLogger

	mu         sync.Mutex
	generation uint64
	cancel     func()
}

func NewCache(ctx context.Context, source Source, ttl time.Duration, log logrus.FieldLogger) (*Cache, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	config := bigcache.DefaultConfig(ttl)
	config.Shards = 16
	config.Verbose = false
	store, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create aggregate cache: %w", err)
	}

	cache := &Cache{source: source, store: store, log: log}
	cache.cancel = source.Watch(cache.invalidate)
	return cache, nil
}

func (c *Cache) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.store.Close()
}

func (c *Cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if err := c.store.Reset(); err != nil {
		c.log.WithError(err).Warn("reset aggregate cache")
	}
}

// Aggregates returns the aggregate table for the window opts describes,
// recomputing it from a fresh snapshot when nothing valid is cached.
func (c *Cache) Aggregates(ctx context.Context, opts Options) (Aggregates, error) {
	window := opts.Window()
	revision, err := c.source.Revision(ctx)
	if err != nil {
		c.log.WithError(err).Warn("read store revision, bypassing aggregate cache")
		return c.build(ctx, window)
	}
	key := fmt.Sprintf("%d|%d|%s", revision, window.Start.Year(), window.Start.Location())

	if raw, err := c.store.Get(key); err == nil {
		var cached Aggregates
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.log.WithField("key", key).Warn("discarding undecodable aggregate cache entry")
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.log.WithError(err).Warn("read aggregate cache")
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	aggregates, err := c.build(ctx, window)
	if err != nil {
		return Aggregates{}, err
	}

	raw, err := json.Marshal(aggregates)
	if err != nil {
		return aggregates, nil
	}

	c.mu.Lock()
	if generation == c.generation {
		if err := c.store.Set(key, raw); err != nil {
			c.log.WithError(err).Warn("write aggregate cache")
		}
	}
	c.mu.Unlock()
	return aggregates, nil
}

func (c *Cache) build(ctx context.Context, window timeutil.Window) (Aggregates, error) {
	entries, err := c.source.Query(ctx, worklog.Filter{})
	if err != nil {
		return Aggregates{}, fmt.Errorf("load logs for aggregation: %w", err)
	}
	return Build(entries, window), nil
}
