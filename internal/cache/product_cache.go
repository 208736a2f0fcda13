package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sewain/backend/internal/metrics"
	"github.com/sewain/backend/internal/repository"
)

type ProductRepository interface {
	GetAll(ctx context.Context) ([]*repository.Product, error)
}

// ProductCache is a read-through copy of the product catalog. Reads hand out
// copies so callers cannot mutate cached rows; writes go to the repository
// first and the cache follows.
type ProductCache struct {
	mu     sync.RWMutex
	cache  map[string]*repository.Product
	repo   ProductRepository
	logger *zap.Logger
}

func NewProductCache(repo ProductRepository, logger *zap.Logger) *ProductCache {
	return &ProductCache{
		cache:  make(map[string]*repository.Product),
		repo:   repo,
		logger: logger,
	}
}

// LoadInitialData warms the cache at startup.
func (c *ProductCache) LoadInitialData(ctx context.Context) error {
	products, err := c.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		productCopy := *p
		c.cache[p.ID] = &productCopy
	}
	metrics.ProductCacheItems.Set(float64(len(c.cache)))
	c.logger.Info("product cache warmed", zap.Int("products", len(c.cache)))
	return nil
}

func (c *ProductCache) Get(productID string) (*repository.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, found := c.cache[productID]
	if !found {
		return nil, false
	}
	productCopy := *p
	return &productCopy, true
}

func (c *ProductCache) Set(p *repository.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	productCopy := *p
	c.cache[p.ID] = &productCopy
	metrics.ProductCacheItems.Set(float64(len(c.cache)))
}

func (c *ProductCache) Delete(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[productID]; found {
		delete(c.cache, productID)
		metrics.ProductCacheItems.Set(float64(len(c.cache)))
	}
}
