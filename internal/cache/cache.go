// Package cache mirrors authoritative remote records into the local store
// so lookups keep working offline.
package cache

import (
	"context"

	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/store"
)

type Cache struct {
	store *store.Store
}

func New(s *store.Store) *Cache {
	return &Cache{store: s}
}

// refresh overwrites the whole collection with the fetched set in one store
// transaction, so a concurrent read never sees a half-cleared cache. An
// empty fetch still overwrites: the cache always reflects the last
// successful online fetch, even when that erases previously cached records.
func (c *Cache) refresh(ctx context.Context, collection string, docs []any) error {
	if err := c.store.Replace(ctx, collection, docs); err != nil {
		return err
	}
	obs.Logger.Info("cache refreshed", "collection", collection, "records", len(docs))
	return nil
}

func (c *Cache) RefreshProducts(ctx context.Context, products []model.Product) error {
	docs := make([]any, len(products))
	for i := range products {
		docs[i] = products[i]
	}
	return c.refresh(ctx, store.Products, docs)
}

func (c *Cache) RefreshCategories(ctx context.Context, categories []model.Category) error {
	docs := make([]any, len(categories))
	for i := range categories {
		docs[i] = categories[i]
	}
	return c.refresh(ctx, store.Categories, docs)
}

func (c *Cache) RefreshCustomers(ctx context.Context, customers []model.Customer) error {
	docs := make([]any, len(customers))
	for i := range customers {
		docs[i] = customers[i]
	}
	return c.refresh(ctx, store.Customers, docs)
}

func (c *Cache) Products(ctx context.Context) ([]model.Product, error) {
	docs, err := c.store.GetAll(ctx, store.Products)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[model.Product](docs)
}

func (c *Cache) Categories(ctx context.Context) ([]model.Category, error) {
	docs, err := c.store.GetAll(ctx, store.Categories)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[model.Category](docs)
}

func (c *Cache) Customers(ctx context.Context) ([]model.Customer, error) {
	docs, err := c.store.GetAll(ctx, store.Customers)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[model.Customer](docs)
}

// ProductsByCategory uses the store's category index for offline browsing.
func (c *Cache) ProductsByCategory(ctx context.Context, categoryID string) ([]model.Product, error) {
	docs, err := c.store.GetByIndex(ctx, store.Products, "category_id", categoryID)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[model.Product](docs)
}
