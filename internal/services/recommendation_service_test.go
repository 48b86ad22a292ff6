// internal/services/recommendation_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgraph/catalog-backend/internal/config"
	"github.com/shopgraph/catalog-backend/internal/graph"
	"github.com/shopgraph/catalog-backend/internal/models"
)

type fakeRecoGraph struct {
	coPurchases      []graph.CoPurchaseRow
	purchaseSets     []graph.PurchaseSet
	purchased        map[string][]string
	viewedCategories []graph.ViewedCategoryRow
	categoryProducts []graph.CategoryProductRow
	ratings          []graph.RatingEvent
	purchaseEvents   []graph.PurchaseEvent
	path             []graph.PathNode
	pathCalls        int
}

func (g *fakeRecoGraph) CoPurchases(ctx context.Context, productID string) ([]graph.CoPurchaseRow, error) {
	return g.coPurchases, nil
}

func (g *fakeRecoGraph) PurchaseSets(ctx context.Context) ([]graph.PurchaseSet, error) {
	return g.purchaseSets, nil
}

func (g *fakeRecoGraph) PurchasedProducts(ctx context.Context, customerID string) ([]string, error) {
	return g.purchased[customerID], nil
}

func (g *fakeRecoGraph) RecentViewedCategories(ctx context.Context, customerID string, since time.Time) ([]graph.ViewedCategoryRow, error) {
	return g.viewedCategories, nil
}

func (g *fakeRecoGraph) ProductsInCategories(ctx context.Context, categoryIDs []uint) ([]graph.CategoryProductRow, error) {
	return g.categoryProducts, nil
}

func (g *fakeRecoGraph) RatingsAtLeast(ctx context.Context, minScore int) ([]graph.RatingEvent, error) {
	var out []graph.RatingEvent
	for _, r := range g.ratings {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *fakeRecoGraph) PurchaseEventsFor(ctx context.Context, productIDs []string) ([]graph.PurchaseEvent, error) {
	wanted := toSet(productIDs)
	var out []graph.PurchaseEvent
	for _, p := range g.purchaseEvents {
		if wanted[p.ProductID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *fakeRecoGraph) ShortestPath(ctx context.Context, fromID, toID string, maxHops int) ([]graph.PathNode, error) {
	g.pathCalls++
	return g.path, nil
}

func recoConfig() config.RecommendConfig {
	return config.RecommendConfig{
		MinSimilarity:      0.1,
		ViewWindowDays:     30,
		InfluenceWindow:    7,
		MinPositiveRatings: 3,
		MaxPathHops:        6,
		DefaultLimit:       10,
	}
}

func newRecoService(g *fakeRecoGraph) (*RecommendationService, *fakeDocs) {
	docs := newFakeDocs(nil)
	return NewRecommendationService(g, docs, recoConfig()), docs
}

func nameProduct(docs *fakeDocs, id, name string) {
	docs.products[id] = &models.Product{Name: name}
}

func TestFrequentlyBoughtTogether(t *testing.T) {
	g := &fakeRecoGraph{
		coPurchases: []graph.CoPurchaseRow{
			{CustomerID: "c1", ProductID: "pb"},
			{CustomerID: "c2", ProductID: "pb"},
			{CustomerID: "c2", ProductID: "pb"}, // repeat purchase, same customer
			{CustomerID: "c2", ProductID: "pc"},
			{CustomerID: "c3", ProductID: "pd"},
		},
	}
	service, docs := newRecoService(g)
	nameProduct(docs, "pb", "Alpha")
	nameProduct(docs, "pc", "Beta")
	nameProduct(docs, "pd", "Aardvark")

	recs, err := service.FrequentlyBoughtTogether(context.Background(), "seed", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Distinct customers score, ties broken by name.
	assert.Equal(t, "pb", recs[0].ProductID)
	assert.Equal(t, float64(2), recs[0].Score)
	assert.Equal(t, 2, recs[0].Supporters)
	assert.Equal(t, "pd", recs[1].ProductID) // Aardvark before Beta
	assert.Equal(t, "pc", recs[2].ProductID)
}

func TestFrequentlyBoughtTogetherEmptyGraph(t *testing.T) {
	service, _ := newRecoService(&fakeRecoGraph{})

	recs, err := service.FrequentlyBoughtTogether(context.Background(), "seed", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSimilarCustomerPicksJaccard(t *testing.T) {
	g := &fakeRecoGraph{
		purchaseSets: []graph.PurchaseSet{
			{CustomerID: "u1", ProductIDs: []string{"p1", "p2"}},
			{CustomerID: "u2", ProductIDs: []string{"p1", "p2", "p3"}},
			{CustomerID: "u3", ProductIDs: []string{"p9"}},
		},
	}
	service, docs := newRecoService(g)
	nameProduct(docs, "p3", "Turntable")

	recs, err := service.SimilarCustomerPicks(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// u2 overlaps u1 on 2 of 3 products: similarity 2/3, scaled by 100.
	// u3 shares nothing and falls under the similarity floor.
	assert.Equal(t, "p3", recs[0].ProductID)
	assert.Equal(t, 66.67, recs[0].Score)
	assert.Equal(t, 1, recs[0].Supporters)
	assert.Equal(t, "Turntable", recs[0].Name)
}

func TestSimilarCustomerPicksUnknownCustomer(t *testing.T) {
	g := &fakeRecoGraph{
		purchaseSets: []graph.PurchaseSet{
			{CustomerID: "u2", ProductIDs: []string{"p1"}},
		},
	}
	service, _ := newRecoService(g)

	recs, err := service.SimilarCustomerPicks(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCategoryPicksWeighting(t *testing.T) {
	g := &fakeRecoGraph{
		viewedCategories: []graph.ViewedCategoryRow{
			{CategoryID: 10, ProductID: "v1"},
			{CategoryID: 10, ProductID: "v2"},
			{CategoryID: 20, ProductID: "v3"},
		},
		purchased: map[string][]string{"u1": {"bought"}},
		categoryProducts: []graph.CategoryProductRow{
			{CategoryID: 10, ProductID: "bought", Purchasers: 5}, // already purchased
			{CategoryID: 10, ProductID: "v1", Purchasers: 4},     // already viewed
			{CategoryID: 10, ProductID: "px", Purchasers: 3},
			{CategoryID: 20, ProductID: "px", Purchasers: 1},
			{CategoryID: 20, ProductID: "py", Purchasers: 2},
		},
	}
	service, _ := newRecoService(g)

	recs, err := service.CategoryPicks(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// px in category 10: 0.7*2 views + 0.3*3 purchasers = 2.3; its category 20
	// score of 1.0 loses to that. py: 0.7*1 + 0.3*2 = 1.3.
	assert.Equal(t, "px", recs[0].ProductID)
	assert.Equal(t, 2.3, recs[0].Score)
	assert.Equal(t, 3, recs[0].Supporters)
	assert.Equal(t, "py", recs[1].ProductID)
	assert.Equal(t, 1.3, recs[1].Score)
}

func TestCategoryPicksNoRecentViews(t *testing.T) {
	service, _ := newRecoService(&fakeRecoGraph{})

	recs, err := service.CategoryPicks(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPathBetweenFound(t *testing.T) {
	g := &fakeRecoGraph{
		path: []graph.PathNode{
			{Kind: "product", ID: "p1"},
			{Kind: "category", ID: "10", Name: "Audio"},
			{Kind: "product", ID: "p2"},
		},
	}
	service, _ := newRecoService(g)

	path, err := service.PathBetween(context.Background(), "p1", "p2")
	require.NoError(t, err)
	assert.True(t, path.Found)
	assert.Equal(t, 2, path.Distance)
	assert.Len(t, path.Nodes, 3)
}

func TestPathBetweenNotFound(t *testing.T) {
	service, _ := newRecoService(&fakeRecoGraph{})

	path, err := service.PathBetween(context.Background(), "p1", "p2")
	require.NoError(t, err)
	assert.False(t, path.Found)
	assert.Equal(t, -1, path.Distance)
	assert.Empty(t, path.Nodes)
}

func TestPathBetweenSameProduct(t *testing.T) {
	g := &fakeRecoGraph{}
	service, docs := newRecoService(g)
	nameProduct(docs, "p1", "Turntable")

	// shortestPath cannot take identical endpoints, so the query must not
	// run at all.
	path, err := service.PathBetween(context.Background(), "p1", "p1")
	require.NoError(t, err)
	assert.True(t, path.Found)
	assert.Equal(t, 0, path.Distance)
	require.Len(t, path.Nodes, 1)
	assert.Equal(t, "p1", path.Nodes[0].ID)
	assert.Equal(t, "Turntable", path.Nodes[0].Name)
	assert.Zero(t, g.pathCalls)
}

func TestPathBetweenSameUnknownProduct(t *testing.T) {
	g := &fakeRecoGraph{}
	service, _ := newRecoService(g)

	path, err := service.PathBetween(context.Background(), "missing", "missing")
	require.NoError(t, err)
	assert.False(t, path.Found)
	assert.Equal(t, -1, path.Distance)
	assert.Zero(t, g.pathCalls)
}

func TestInfluencers(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	g := &fakeRecoGraph{
		ratings: []graph.RatingEvent{
			{CustomerID: "inf", ProductID: "p1", Score: 5, RatedAt: base},
			{CustomerID: "inf", ProductID: "p2", Score: 4, RatedAt: base},
			{CustomerID: "inf", ProductID: "p3", Score: 5, RatedAt: base},
			{CustomerID: "casual", ProductID: "p1", Score: 5, RatedAt: base}, // below min ratings
			{CustomerID: "inf", ProductID: "p4", Score: 2, RatedAt: base},    // below score floor
		},
		purchaseEvents: []graph.PurchaseEvent{
			{CustomerID: "other1", ProductID: "p1", PurchasedAt: base.Add(-3 * day)}, // before
			{CustomerID: "other2", ProductID: "p1", PurchasedAt: base.Add(2 * day)},  // after
			{CustomerID: "other3", ProductID: "p1", PurchasedAt: base.Add(5 * day)},  // after
			{CustomerID: "other4", ProductID: "p2", PurchasedAt: base.Add(6 * day)},  // after
			{CustomerID: "other5", ProductID: "p2", PurchasedAt: base.Add(20 * day)}, // outside window
			{CustomerID: "inf", ProductID: "p3", PurchasedAt: base.Add(day)},         // own purchase
		},
	}
	service, _ := newRecoService(g)

	influencers, err := service.Influencers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, influencers, 1)

	inf := influencers[0]
	assert.Equal(t, "inf", inf.CustomerID)
	assert.Equal(t, 3, inf.PositiveRatings)
	assert.Equal(t, 1, inf.SalesBefore)
	assert.Equal(t, 3, inf.SalesAfter)
	assert.Equal(t, 2, inf.SalesDelta)
	// 2.0*3 ratings + 1.5*2 delta + 0.5*200 pct lift
	assert.Equal(t, 109.0, inf.Score)
}

func TestInfluencersNoRatings(t *testing.T) {
	service, _ := newRecoService(&fakeRecoGraph{})

	influencers, err := service.Influencers(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, influencers)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, round2(2.0/3.0*100))
	assert.Equal(t, 0.0, round2(0))
	assert.Equal(t, 1.5, round2(1.499999999))
}
