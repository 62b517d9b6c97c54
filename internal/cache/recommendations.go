// Package cache holds recommendations fetched from the LLM for a short time
// so that repeated searches for the same query skip the upstream call.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"book-discovery/internal/metrics"
	"book-discovery/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// DefaultTTL is how long a recommendation stays valid
const DefaultTTL = 5 * time.Minute

type entry struct {
	data      model.Recommendation
	timestamp time.Time
}

// RecommendationCache is a time-expiring map keyed by normalized query text.
// It is safe for concurrent use.
type RecommendationCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// Option configures a RecommendationCache
type Option func(*RecommendationCache)

// WithClock injects the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *RecommendationCache) {
		c.now = now
	}
}

// New creates a cache whose entries expire after ttl
func New(ttl time.Duration, opts ...Option) *RecommendationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &RecommendationCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeKey lower-cases and trims the query so that trivially different
// spellings share a slot
func NormalizeKey(query string) string {
	q := norm.NFC.String(query)
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Get returns the stored recommendation for query unless it has expired
func (c *RecommendationCache) Get(query string) (model.Recommendation, bool) {
	key := NormalizeKey(query)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return model.Recommendation{}, false
	}

	if c.expired(e) {
		c.mu.Lock()
		// Re-check under the write lock: a fresh Put may have replaced it
		if cur, still := c.entries[key]; still && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return model.Recommendation{}, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return e.data, true
}

// Put stores rec for query, replacing any previous entry
func (c *RecommendationCache) Put(query string, rec model.Recommendation) {
	key := NormalizeKey(query)
	c.mu.Lock()
	c.entries[key] = entry{data: rec, timestamp: c.now()}
	c.mu.Unlock()
}

// Clear removes every entry
func (c *RecommendationCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	logrus.Infof("[CACHE] Cleared %d recommendation(s)", n)
}

// Len returns the number of stored entries, expired ones included
func (c *RecommendationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were removed
func (c *RecommendationCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Start runs Sweep once per TTL until ctx is done or Stop is called
func (c *RecommendationCache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
		go c.sweepLoop(ctx)
	})
}

func (c *RecommendationCache) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				logrus.Debugf("[CACHE] Swept %d expired recommendation(s)", n)
			}
		}
	}
}

// Stop halts the sweeper started by Start and waits for it to exit
func (c *RecommendationCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if started {
		<-c.done
	}
}

func (c *RecommendationCache) expired(e entry) bool {
	return c.now().Sub(e.timestamp) > c.ttl
}
