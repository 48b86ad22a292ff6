// internal/services/product_read_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgraph/catalog-backend/internal/cache"
	"github.com/shopgraph/catalog-backend/internal/models"
)

type fakeProductCache struct {
	products map[string]*models.Product
	views    map[string]int64
	ranked   []cache.RankedProduct

	getErr error
	setErr error

	setCalls int
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{
		products: map[string]*models.Product{},
		views:    map[string]int64{},
	}
}

func (c *fakeProductCache) GetProduct(ctx context.Context, id string) (*models.Product, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	product, ok := c.products[id]
	if !ok {
		return nil, false, nil
	}
	copied := *product
	return &copied, true, nil
}

func (c *fakeProductCache) SetProduct(ctx context.Context, product *models.Product) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.setCalls++
	copied := *product
	c.products[product.HexID()] = &copied
	return nil
}

func (c *fakeProductCache) IncrementView(ctx context.Context, id string) (int64, error) {
	c.views[id]++
	return c.views[id], nil
}

func (c *fakeProductCache) TopViewed(ctx context.Context, limit int) ([]cache.RankedProduct, error) {
	if limit > 0 && len(c.ranked) > limit {
		return c.ranked[:limit], nil
	}
	return c.ranked, nil
}

func seedDoc(docs *fakeDocs, id, name string) {
	docs.products[id] = &models.Product{
		Name:        name,
		Brand:       "Acme",
		CategoryIDs: []uint{1},
		Stock:       10,
	}
}

func TestGetProductCacheMissRefillsCache(t *testing.T) {
	docs := newFakeDocs(nil)
	productCache := newFakeProductCache()
	graphStore := newFakeGraph(nil)
	service := NewProductReadService(docs, productCache, graphStore)

	const id = "000000000000000000000001"
	seedDoc(docs, id, "Wireless Headphones")

	product, err := service.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", product.Name)
	assert.Equal(t, 10, product.Available)
	assert.NotNil(t, product.Reviews)
	assert.Equal(t, 1, productCache.setCalls)
}

func TestGetProductCacheHitSkipsDocumentStore(t *testing.T) {
	docs := newFakeDocs(nil)
	productCache := newFakeProductCache()
	service := NewProductReadService(docs, productCache, newFakeGraph(nil))

	const id = "000000000000000000000001"
	productCache.products[id] = &models.Product{Name: "Cached Lamp"}

	product, err := service.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Cached Lamp", product.Name)
	assert.Zero(t, productCache.setCalls)
}

func TestGetProductBrokenCacheDegradesToDocumentRead(t *testing.T) {
	docs := newFakeDocs(nil)
	productCache := newFakeProductCache()
	productCache.getErr = errors.New("connection refused")
	productCache.setErr = errors.New("connection refused")
	service := NewProductReadService(docs, productCache, newFakeGraph(nil))

	const id = "000000000000000000000001"
	seedDoc(docs, id, "Desk Lamp")

	product, err := service.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", product.Name)
}

func TestGetProductNotFound(t *testing.T) {
	service := NewProductReadService(newFakeDocs(nil), newFakeProductCache(), newFakeGraph(nil))

	_, err := service.GetProduct(context.Background(), "000000000000000000000099")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRecordView(t *testing.T) {
	docs := newFakeDocs(nil)
	productCache := newFakeProductCache()
	graphStore := newFakeGraph(nil)
	service := NewProductReadService(docs, productCache, graphStore)

	const id = "000000000000000000000001"
	seedDoc(docs, id, "Wireless Headphones")

	count, err := service.RecordView(context.Background(), "u1", id, "mobile")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Views)

	// A second view by the same customer upserts the edge and bumps the
	// counter again.
	count, err = service.RecordView(context.Background(), "u1", id, "desktop")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Views)
	assert.Len(t, graphStore.views["u1"], 1)
}

func TestRecordViewUnknownProduct(t *testing.T) {
	service := NewProductReadService(newFakeDocs(nil), newFakeProductCache(), newFakeGraph(nil))

	_, err := service.RecordView(context.Background(), "u1", "000000000000000000000099", "mobile")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMostViewedEnrichesNames(t *testing.T) {
	docs := newFakeDocs(nil)
	productCache := newFakeProductCache()
	service := NewProductReadService(docs, productCache, newFakeGraph(nil))

	seedDoc(docs, "000000000000000000000001", "Wireless Headphones")
	seedDoc(docs, "000000000000000000000002", "Desk Lamp")
	productCache.ranked = []cache.RankedProduct{
		{ProductID: "000000000000000000000001", Views: 40},
		{ProductID: "000000000000000000000002", Views: 12},
	}

	entries, err := service.MostViewed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Wireless Headphones", entries[0].Name)
	assert.Equal(t, int64(40), entries[0].Views)
	assert.Equal(t, "Desk Lamp", entries[1].Name)
}

func TestActivityServiceRecordsPurchaseAndRating(t *testing.T) {
	docs := newFakeDocs(nil)
	graphStore := newFakeGraph(nil)
	invalidator := &fakeInvalidator{}
	service := NewActivityService(docs, graphStore, invalidator)

	const id = "000000000000000000000001"
	seedDoc(docs, id, "Wireless Headphones")

	err := service.RecordPurchase(context.Background(), id, &RecordPurchaseRequest{
		CustomerID: "u1",
		Quantity:   2,
		UnitPrice:  199.99,
		OrderID:    "ord-1",
	})
	require.NoError(t, err)
	require.Len(t, graphStore.purchases, 1)
	assert.Equal(t, "u1", graphStore.purchases[0].CustomerID)

	err = service.RecordRating(context.Background(), id, &RecordRatingRequest{
		CustomerID: "u1",
		Score:      5,
		Comment:    "Great sound",
	})
	require.NoError(t, err)
	require.Len(t, graphStore.ratings, 1)
	assert.Equal(t, 5, graphStore.ratings[0].Score)

	// The review is mirrored into the document and the cache entry dropped.
	require.Len(t, docs.products[id].Reviews, 1)
	assert.Equal(t, 5, docs.products[id].Reviews[0].Rating)
	assert.Contains(t, invalidator.invalidated, id)

	// Re-rating replaces the previous review instead of appending.
	err = service.RecordRating(context.Background(), id, &RecordRatingRequest{
		CustomerID: "u1",
		Score:      3,
	})
	require.NoError(t, err)
	require.Len(t, graphStore.ratings, 1)
	assert.Equal(t, 3, graphStore.ratings[0].Score)
	require.Len(t, docs.products[id].Reviews, 1)
	assert.Equal(t, 3, docs.products[id].Reviews[0].Rating)
}

func TestActivityServiceValidation(t *testing.T) {
	service := NewActivityService(newFakeDocs(nil), newFakeGraph(nil), &fakeInvalidator{})

	err := service.RecordPurchase(context.Background(), "000000000000000000000001", &RecordPurchaseRequest{
		CustomerID: "u1",
		Quantity:   0,
		OrderID:    "ord-1",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = service.RecordRating(context.Background(), "000000000000000000000001", &RecordRatingRequest{
		CustomerID: "u1",
		Score:      6,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
