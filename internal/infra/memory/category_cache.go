package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// CategoryCache keeps the provider's category list for a TTL to avoid refetching it on every setup page.
type CategoryCache struct {
	loader app.CategoryProvider
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Category
	expiresAt time.Time
}

func NewCategoryCache(loader app.CategoryProvider, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CategoryCache) Categories(ctx context.Context) ([]domain.Category, error) {
	if cats, ok := c.lookup(c.clock()); ok {
		return cats, nil
	}

	result, err, _ := c.sf.Do("categories", func() (interface{}, error) {
		now := c.clock()
		if cats, ok := c.lookup(now); ok {
			return cats, nil
		}

		cats, err := c.loader.Categories(ctx)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		c.mu.Lock()
		c.cached = cats
		c.expiresAt = now.Add(ttl)
		c.mu.Unlock()
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (c *CategoryCache) lookup(now time.Time) ([]domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached != nil && c.expiresAt.After(now) {
		return c.cached, true
	}
	return nil, false
}

func (c *CategoryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
