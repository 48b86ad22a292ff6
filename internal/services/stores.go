// internal/services/stores.go
package services

import (
	"context"
	"time"

	"github.com/shopgraph/catalog-backend/internal/cache"
	"github.com/shopgraph/catalog-backend/internal/graph"
	"github.com/shopgraph/catalog-backend/internal/models"
)

// Store contracts consumed by the services. The adapters in
// internal/repository, internal/graph and internal/cache satisfy them; tests
// substitute in-memory fakes.

// DocumentTxn is a session-scoped multi-document transaction.
type DocumentTxn interface {
	Insert(ctx context.Context, product *models.Product) (string, error)
	ReplaceByID(ctx context.Context, id string, product *models.Product) (bool, error)
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// DocumentStore is the product document adapter.
type DocumentStore interface {
	Txn(ctx context.Context) (DocumentTxn, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindAll(ctx context.Context, page, pageSize int, categoryID uint) ([]*models.Product, int64, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	UpsertReview(ctx context.Context, id string, review models.Review) error
	UpdateCategoryRefs(ctx context.Context, fromID, toID uint) ([]string, error)
	ProductIDsByCategory(ctx context.Context, categoryID uint) ([]string, error)
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// GraphTx is an explicit graph transaction.
type GraphTx interface {
	MergeBrand(ctx context.Context, name string) error
	MergeCategory(ctx context.Context, id uint, name string) error
	MergeProductNode(ctx context.Context, productID string) error
	CreateMadeBy(ctx context.Context, productID, brand string) error
	DeleteMadeBy(ctx context.Context, productID, brand string) error
	CreateBelongsTo(ctx context.Context, productID string, categoryID uint) error
	DeleteBelongsTo(ctx context.Context, productID string, categoryID uint) error
	ReassignCategoryEdges(ctx context.Context, fromID, toID uint, toName string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GraphStore is the graph adapter used by the write coordinator.
type GraphStore interface {
	Begin(ctx context.Context) (GraphTx, error)
	ProductNodeExists(ctx context.Context, productID string) (bool, error)
	ProductEdges(ctx context.Context, productID string) (string, []uint, error)
	DetachDeleteProduct(ctx context.Context, productID string) error
	DeleteCategoryIfOrphan(ctx context.Context, categoryID uint) error
	DeleteBrandIfOrphan(ctx context.Context, name string) error
}

// ActivityGraph records customer interaction edges.
type ActivityGraph interface {
	UpsertViewed(ctx context.Context, customerID, productID, device string, at time.Time) error
	CreatePurchased(ctx context.Context, customerID, productID string, quantity int, unitPrice float64, orderID string, at time.Time) error
	UpsertRated(ctx context.Context, customerID, productID string, score int, comment string, at time.Time) error
}

// RecommendationGraph provides the read-only traversals the recommendation
// engine scores over.
type RecommendationGraph interface {
	CoPurchases(ctx context.Context, productID string) ([]graph.CoPurchaseRow, error)
	PurchaseSets(ctx context.Context) ([]graph.PurchaseSet, error)
	PurchasedProducts(ctx context.Context, customerID string) ([]string, error)
	RecentViewedCategories(ctx context.Context, customerID string, since time.Time) ([]graph.ViewedCategoryRow, error)
	ProductsInCategories(ctx context.Context, categoryIDs []uint) ([]graph.CategoryProductRow, error)
	RatingsAtLeast(ctx context.Context, minScore int) ([]graph.RatingEvent, error)
	PurchaseEventsFor(ctx context.Context, productIDs []string) ([]graph.PurchaseEvent, error)
	ShortestPath(ctx context.Context, fromID, toID string, maxHops int) ([]graph.PathNode, error)
}

// CategoryLookup is the relational collaborator that owns category ids.
type CategoryLookup interface {
	Exists(ctx context.Context, id uint) (bool, error)
	FindByID(ctx context.Context, id uint) (*models.Category, error)
}

// CacheInvalidator is the only cache capability write paths get: they delete
// entries, never populate them.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// ProductCache is the read-path cache contract.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, bool, error)
	SetProduct(ctx context.Context, product *models.Product) error
	IncrementView(ctx context.Context, id string) (int64, error)
	TopViewed(ctx context.Context, limit int) ([]cache.RankedProduct, error)
}
