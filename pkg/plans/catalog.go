package plans

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheTTL = 10 * time.Minute

// Catalog is the read path for plans, caching store results in an expiring LRU
type Catalog struct {
	store Store
	plans *lru.LRU[string, *Plan]
	lists *lru.LRU[Category, []*Plan]
}

// NewCatalog creates a Catalog. size bounds the number of cached plans.
func NewCatalog(store Store, size int) *Catalog {
	if size <= 0 {
		size = 128
	}
	return &Catalog{
		store: store,
		plans: lru.NewLRU[string, *Plan](size, nil, defaultCacheTTL),
		lists: lru.NewLRU[Category, []*Plan](4, nil, defaultCacheTTL),
	}
}

// List returns plans for category ("" for all) ordered by price
func (c *Catalog) List(ctx context.Context, category Category) ([]*Plan, error) {
	if cached, ok := c.lists.Get(category); ok {
		return cached, nil
	}

	plans, err := c.store.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*Plan{}
	}
	c.lists.Add(category, plans)
	for _, p := range plans {
		c.plans.Add(p.ID, p)
	}
	return plans, nil
}

// Get returns the plan or ErrPlanNotFound
func (c *Catalog) Get(ctx context.Context, id string) (*Plan, error) {
	if cached, ok := c.plans.Get(id); ok {
		return cached, nil
	}

	plan, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.plans.Add(id, plan)
	return plan, nil
}

// Upsert writes plan through to the store and drops every cached entry
func (c *Catalog) Upsert(ctx context.Context, plan *Plan) error {
	if err := c.store.Upsert(ctx, plan); err != nil {
		return err
	}
	c.Purge()
	return nil
}

// Purge empties the cache
func (c *Catalog) Purge() {
	c.plans.Purge()
	c.lists.Purge()
}
