package reasoner

import (
	"context"

	"github.com/hymao/mxgraph/pkg/cache"
	"github.com/hymao/mxgraph/pkg/owl"
)

// Cached answers repeated queries from a result cache. Classify clears the
// cache before reclassifying. Errors are never cached.
type Cached struct {
	inner Reasoner
	cache *cache.ResultCache
}

// NewCached wraps inner. A nil cache gets a default one.
func NewCached(inner Reasoner, c *cache.ResultCache) *Cached {
	if c == nil {
		c = cache.NewResultCache(1000, 0)
	}
	return &Cached{inner: inner, cache: c}
}

// Stats returns the cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}

// Classify implements Reasoner.
func (c *Cached) Classify(ctx context.Context) error {
	c.cache.Clear()
	return c.inner.Classify(ctx)
}

// SubClasses implements Reasoner.
func (c *Cached) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return c.lookup(KindSubClasses, ce, direct, func() ([]owl.IRI, error) {
		return c.inner.SubClasses(ctx, ce, direct)
	})
}

// Instances implements Reasoner.
func (c *Cached) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return c.lookup(KindInstances, ce, direct, func() ([]owl.IRI, error) {
		return c.inner.Instances(ctx, ce, direct)
	})
}

func (c *Cached) lookup(kind string, ce owl.ClassExpression, direct bool, compute func() ([]owl.IRI, error)) ([]owl.IRI, error) {
	if ce == nil {
		return compute()
	}

	key := cache.Key(kind, ce.String(), direct)
	if v, ok := c.cache.Get(key); ok {
		return append([]owl.IRI(nil), v.([]owl.IRI)...), nil
	}

	result, err := compute()
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, append([]owl.IRI(nil), result...))
	return result, nil
}

var _ Reasoner = (*Cached)(nil)
