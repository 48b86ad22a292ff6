// internal/services/recommendation_service.go
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopgraph/catalog-backend/internal/config"
	"github.com/shopgraph/catalog-backend/internal/graph"
)

// Influence score weights. The score combines how much a customer rates with
// how product sales move around those ratings.
const (
	influenceRatingWeight = 2.0
	influenceDeltaWeight  = 1.5
	influencePctWeight    = 0.5
)

// Weights for category-based scoring: how often the customer looked at the
// category versus how broadly the product sells.
const (
	categoryViewWeight     = 0.7
	categoryPurchaseWeight = 0.3
)

// RecommendationService runs read-only scoring over the current graph state.
// Every algorithm is a pure function of that state: the same snapshot yields
// the same ordered result, and an empty graph yields an empty result rather
// than an error.
type RecommendationService struct {
	graph RecommendationGraph
	docs  DocumentStore
	cfg   config.RecommendConfig
}

func NewRecommendationService(recommendationGraph RecommendationGraph, docs DocumentStore, cfg config.RecommendConfig) *RecommendationService {
	return &RecommendationService{
		graph: recommendationGraph,
		docs:  docs,
		cfg:   cfg,
	}
}

// Recommendation is a scored product suggestion.
type Recommendation struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
	Supporters int     `json:"supporters"`
}

// ProductPath is the result of a shortest-path query between two products.
type ProductPath struct {
	Found    bool             `json:"found"`
	Distance int              `json:"distance"`
	Nodes    []graph.PathNode `json:"nodes,omitempty"`
}

// Influencer is a customer whose positive ratings move sales.
type Influencer struct {
	CustomerID      string  `json:"customer_id"`
	PositiveRatings int     `json:"positive_ratings"`
	SalesBefore     int     `json:"sales_before"`
	SalesAfter      int     `json:"sales_after"`
	SalesDelta      int     `json:"sales_delta"`
	Score           float64 `json:"score"`
}

func (s *RecommendationService) limitOrDefault(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	return limit
}

// FrequentlyBoughtTogether scores candidates by the number of distinct
// customers they share with the seed product. Ties break by name ascending.
func (s *RecommendationService) FrequentlyBoughtTogether(ctx context.Context, productID string, limit int) ([]Recommendation, error) {
	rows, err := s.graph.CoPurchases(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("co-purchase query failed: %w", err)
	}
	if len(rows) == 0 {
		return []Recommendation{}, nil
	}

	supporters := map[string]map[string]bool{}
	for _, row := range rows {
		if supporters[row.ProductID] == nil {
			supporters[row.ProductID] = map[string]bool{}
		}
		supporters[row.ProductID][row.CustomerID] = true
	}

	ids := make([]string, 0, len(supporters))
	for id := range supporters {
		ids = append(ids, id)
	}
	names := s.lookupNames(ctx, ids)

	recommendations := make([]Recommendation, 0, len(supporters))
	for id, customers := range supporters {
		recommendations = append(recommendations, Recommendation{
			ProductID:  id,
			Name:       names[id],
			Score:      float64(len(customers)),
			Supporters: len(customers),
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		if recommendations[i].Name != recommendations[j].Name {
			return recommendations[i].Name < recommendations[j].Name
		}
		return recommendations[i].ProductID < recommendations[j].ProductID
	})

	return truncate(recommendations, s.limitOrDefault(limit)), nil
}

// SimilarCustomerPicks recommends products bought by customers whose
// purchase sets overlap with the given customer's (Jaccard similarity).
// A candidate's score is the sum of the similarities of every similar
// customer who bought it, scaled by 100 and rounded to two decimals.
func (s *RecommendationService) SimilarCustomerPicks(ctx context.Context, customerID string, limit int) ([]Recommendation, error) {
	sets, err := s.graph.PurchaseSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase set query failed: %w", err)
	}

	var own map[string]bool
	others := make([]graph.PurchaseSet, 0, len(sets))
	for _, set := range sets {
		if set.CustomerID == customerID {
			own = toSet(set.ProductIDs)
		} else {
			others = append(others, set)
		}
	}
	if len(own) == 0 {
		return []Recommendation{}, nil
	}

	type candidate struct {
		score      float64
		supporters int
	}
	candidates := map[string]*candidate{}

	for _, other := range others {
		otherSet := toSet(other.ProductIDs)
		similarity := jaccard(own, otherSet)
		if similarity < s.cfg.MinSimilarity {
			continue
		}

		for id := range otherSet {
			if own[id] {
				continue
			}
			if candidates[id] == nil {
				candidates[id] = &candidate{}
			}
			candidates[id].score += similarity
			candidates[id].supporters++
		}
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	names := s.lookupNames(ctx, ids)

	recommendations := make([]Recommendation, 0, len(candidates))
	for id, c := range candidates {
		recommendations = append(recommendations, Recommendation{
			ProductID:  id,
			Name:       names[id],
			Score:      round2(c.score * 100),
			Supporters: c.supporters,
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		if recommendations[i].Supporters != recommendations[j].Supporters {
			return recommendations[i].Supporters > recommendations[j].Supporters
		}
		return recommendations[i].ProductID < recommendations[j].ProductID
	})

	return truncate(recommendations, s.limitOrDefault(limit)), nil
}

// CategoryPicks recommends unseen products from the categories the customer
// viewed recently, weighting category interest over general popularity.
func (s *RecommendationService) CategoryPicks(ctx context.Context, customerID string, limit int) ([]Recommendation, error) {
	since := time.Now().AddDate(0, 0, -s.cfg.ViewWindowDays)

	views, err := s.graph.RecentViewedCategories(ctx, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("recent view query failed: %w", err)
	}
	if len(views) == 0 {
		return []Recommendation{}, nil
	}

	purchasedIDs, err := s.graph.PurchasedProducts(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("purchased products query failed: %w", err)
	}
	purchased := toSet(purchasedIDs)

	viewCount := map[uint]int{}
	viewedProducts := map[string]bool{}
	for _, view := range views {
		viewCount[view.CategoryID]++
		viewedProducts[view.ProductID] = true
	}

	categoryIDs := make([]uint, 0, len(viewCount))
	for id := range viewCount {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool { return categoryIDs[i] < categoryIDs[j] })

	rows, err := s.graph.ProductsInCategories(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("category product query failed: %w", err)
	}

	// A product in several viewed categories keeps its best score.
	best := map[string]float64{}
	supporters := map[string]int{}
	for _, row := range rows {
		if purchased[row.ProductID] || viewedProducts[row.ProductID] {
			continue
		}
		score := categoryViewWeight*float64(viewCount[row.CategoryID]) +
			categoryPurchaseWeight*float64(row.Purchasers)
		if score > best[row.ProductID] {
			best[row.ProductID] = score
			supporters[row.ProductID] = int(row.Purchasers)
		}
	}

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	names := s.lookupNames(ctx, ids)

	recommendations := make([]Recommendation, 0, len(best))
	for id, score := range best {
		recommendations = append(recommendations, Recommendation{
			ProductID:  id,
			Name:       names[id],
			Score:      round2(score),
			Supporters: supporters[id],
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].ProductID < recommendations[j].ProductID
	})

	return truncate(recommendations, s.limitOrDefault(limit)), nil
}

// PathBetween finds the unweighted shortest path between two products
// through shared categories and brands. An unreachable pair is a valid
// "not found" result with distance -1, not an error.
func (s *RecommendationService) PathBetween(ctx context.Context, fromID, toID string) (*ProductPath, error) {
	// shortestPath rejects identical start and end nodes, and the answer is
	// trivial anyway.
	if fromID == toID {
		names, err := s.docs.NamesByIDs(ctx, []string{fromID})
		if err != nil {
			return nil, fmt.Errorf("product lookup failed: %w", err)
		}
		name, ok := names[fromID]
		if !ok {
			return &ProductPath{Found: false, Distance: -1}, nil
		}
		return &ProductPath{
			Found:    true,
			Distance: 0,
			Nodes:    []graph.PathNode{{Kind: "product", ID: fromID, Name: name}},
		}, nil
	}

	nodes, err := s.graph.ShortestPath(ctx, fromID, toID, s.cfg.MaxPathHops)
	if err != nil {
		return nil, fmt.Errorf("shortest path query failed: %w", err)
	}

	if len(nodes) == 0 {
		return &ProductPath{Found: false, Distance: -1}, nil
	}

	return &ProductPath{
		Found:    true,
		Distance: len(nodes) - 1,
		Nodes:    nodes,
	}, nil
}

// Influencers finds customers whose positive ratings (score >= 4) precede a
// measurable lift in other customers' purchases of the rated products.
func (s *RecommendationService) Influencers(ctx context.Context, limit int) ([]Influencer, error) {
	ratings, err := s.graph.RatingsAtLeast(ctx, 4)
	if err != nil {
		return nil, fmt.Errorf("rating query failed: %w", err)
	}
	if len(ratings) == 0 {
		return []Influencer{}, nil
	}

	byCustomer := map[string][]graph.RatingEvent{}
	for _, rating := range ratings {
		byCustomer[rating.CustomerID] = append(byCustomer[rating.CustomerID], rating)
	}

	productSet := map[string]bool{}
	qualified := make([]string, 0, len(byCustomer))
	for customerID, events := range byCustomer {
		if len(events) < s.cfg.MinPositiveRatings {
			continue
		}
		qualified = append(qualified, customerID)
		for _, event := range events {
			productSet[event.ProductID] = true
		}
	}
	if len(qualified) == 0 {
		return []Influencer{}, nil
	}
	sort.Strings(qualified)

	productIDs := make([]string, 0, len(productSet))
	for id := range productSet {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	purchases, err := s.graph.PurchaseEventsFor(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("purchase event query failed: %w", err)
	}

	byProduct := map[string][]graph.PurchaseEvent{}
	for _, purchase := range purchases {
		byProduct[purchase.ProductID] = append(byProduct[purchase.ProductID], purchase)
	}

	window := time.Duration(s.cfg.InfluenceWindow) * 24 * time.Hour

	influencers := make([]Influencer, 0, len(qualified))
	for _, customerID := range qualified {
		before, after := 0, 0
		for _, rating := range byCustomer[customerID] {
			for _, purchase := range byProduct[rating.ProductID] {
				if purchase.CustomerID == customerID {
					continue
				}
				gap := purchase.PurchasedAt.Sub(rating.RatedAt)
				switch {
				case gap < 0 && gap >= -window:
					before++
				case gap > 0 && gap <= window:
					after++
				}
			}
		}

		delta := after - before
		pct := 0.0
		switch {
		case before > 0:
			pct = float64(delta) / float64(before) * 100
		case after > 0:
			pct = 100
		}

		influencers = append(influencers, Influencer{
			CustomerID:      customerID,
			PositiveRatings: len(byCustomer[customerID]),
			SalesBefore:     before,
			SalesAfter:      after,
			SalesDelta:      delta,
			Score: round2(influenceRatingWeight*float64(len(byCustomer[customerID])) +
				influenceDeltaWeight*float64(delta) +
				influencePctWeight*pct),
		})
	}

	sort.Slice(influencers, func(i, j int) bool {
		if influencers[i].Score != influencers[j].Score {
			return influencers[i].Score > influencers[j].Score
		}
		return influencers[i].CustomerID < influencers[j].CustomerID
	})

	return truncate(influencers, s.limitOrDefault(limit)), nil
}

func (s *RecommendationService) lookupNames(ctx context.Context, ids []string) map[string]string {
	names, err := s.docs.NamesByIDs(ctx, ids)
	if err != nil {
		logrus.WithError(err).Warn("Product name lookup failed")
		return map[string]string{}
	}
	return names
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for id := range a {
		if b[id] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
