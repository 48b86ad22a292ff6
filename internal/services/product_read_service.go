// internal/services/product_read_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopgraph/catalog-backend/internal/models"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

// ProductReadService serves single-product reads through the cache and owns
// cache population. Write paths invalidate entries; only this service ever
// fills them.
type ProductReadService struct {
	docs  DocumentStore
	cache ProductCache
	graph ActivityGraph
}

func NewProductReadService(docs DocumentStore, productCache ProductCache, activityGraph ActivityGraph) *ProductReadService {
	return &ProductReadService{
		docs:  docs,
		cache: productCache,
		graph: activityGraph,
	}
}

// GetProduct returns the product by id: cache hit refreshes the TTL, a miss
// reads the document store, normalizes and refills the cache.
func (s *ProductReadService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, hit, err := s.cache.GetProduct(ctx, id)
	if err != nil {
		// A broken cache degrades to a document read.
		logrus.WithError(err).WithField("product_id", id).Warn("Cache read failed")
	}
	if hit {
		return product, nil
	}

	product, err = s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	product.Normalize()

	if err := s.cache.SetProduct(ctx, product); err != nil {
		logrus.WithError(err).WithField("product_id", id).Warn("Cache refill failed")
	}

	return product, nil
}

// ListProducts lists products from the document store with pagination. The
// listing never goes through the per-product cache.
func (s *ProductReadService) ListProducts(ctx context.Context, params utils.PaginationParams, categoryID uint) ([]*models.Product, int64, error) {
	products, total, err := s.docs.FindAll(ctx, params.Page, params.Limit, categoryID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	for _, product := range products {
		product.Normalize()
	}
	return products, total, nil
}

// ViewCount is the view counter value after a recorded view.
type ViewCount struct {
	ProductID string `json:"product_id"`
	Views     int64  `json:"views"`
}

// RecordView bumps the cache-resident view counter and ranking and upserts
// the VIEWED edge for the customer-product pair.
func (s *ProductReadService) RecordView(ctx context.Context, customerID, productID, device string) (*ViewCount, error) {
	exists, err := s.docs.ExistsByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	if err := s.graph.UpsertViewed(ctx, customerID, productID, device, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	views, err := s.cache.IncrementView(ctx, productID)
	if err != nil {
		// The edge is recorded; a ranking miss only skews the cached counter.
		logrus.WithError(err).WithField("product_id", productID).Warn("View counter update failed")
	}

	return &ViewCount{ProductID: productID, Views: views}, nil
}

// MostViewedEntry pairs a ranked product with its name for display.
type MostViewedEntry struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Views     int64  `json:"views"`
}

// MostViewed returns the cache-resident view ranking, enriched with product
// names from the document store.
func (s *ProductReadService) MostViewed(ctx context.Context, limit int) ([]MostViewedEntry, error) {
	ranked, err := s.cache.TopViewed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read view ranking: %w", err)
	}
	if len(ranked) == 0 {
		return []MostViewedEntry{}, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		ids = append(ids, entry.ProductID)
	}

	names, err := s.docs.NamesByIDs(ctx, ids)
	if err != nil {
		logrus.WithError(err).Warn("Name lookup for ranking failed")
		names = map[string]string{}
	}

	entries := make([]MostViewedEntry, 0, len(ranked))
	for _, entry := range ranked {
		entries = append(entries, MostViewedEntry{
			ProductID: entry.ProductID,
			Name:      names[entry.ProductID],
			Views:     entry.Views,
		})
	}
	return entries, nil
}
