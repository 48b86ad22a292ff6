// internal/graph/reader.go
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// Read-only traversals backing the recommendation engine. Every query is
// parameterized; none of them mutates the graph.

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

// CoPurchases returns, for every customer who purchased the seed product,
// the other products that customer purchased.
func (s *Store) CoPurchases(ctx context.Context, productID string) ([]CoPurchaseRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Customer)-[:PURCHASED]->(:Product {id: $productID})
		MATCH (c)-[:PURCHASED]->(other:Product)
		WHERE other.id <> $productID
		RETURN DISTINCT c.id AS customer_id, other.id AS product_id
	`, map[string]interface{}{"productID": productID})
	if err != nil {
		return nil, fmt.Errorf("failed to query co-purchases: %w", err)
	}

	var rows []CoPurchaseRow
	for result.Next(ctx) {
		record := result.Record()
		rows = append(rows, CoPurchaseRow{
			CustomerID: recordString(record, "customer_id"),
			ProductID:  recordString(record, "product_id"),
		})
	}
	return rows, result.Err()
}

// PurchaseSets returns the purchased-product set of every customer.
func (s *Store) PurchaseSets(ctx context.Context) ([]PurchaseSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Customer)-[:PURCHASED]->(p:Product)
		RETURN c.id AS customer_id, collect(DISTINCT p.id) AS product_ids
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase sets: %w", err)
	}

	var sets []PurchaseSet
	for result.Next(ctx) {
		record := result.Record()
		sets = append(sets, PurchaseSet{
			CustomerID: recordString(record, "customer_id"),
			ProductIDs: recordStringList(record, "product_ids"),
		})
	}
	return sets, result.Err()
}

// PurchasedProducts returns the distinct product ids a customer purchased.
func (s *Store) PurchasedProducts(ctx context.Context, customerID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (:Customer {id: $customerID})-[:PURCHASED]->(p:Product)
		RETURN collect(DISTINCT p.id) AS product_ids
	`, map[string]interface{}{"customerID": customerID})
	if err != nil {
		return nil, fmt.Errorf("failed to query purchased products: %w", err)
	}

	if result.Next(ctx) {
		return recordStringList(result.Record(), "product_ids"), nil
	}
	return nil, result.Err()
}

// RecentViewedCategories returns one row per (recent view, category of the
// viewed product) for the given customer.
func (s *Store) RecentViewedCategories(ctx context.Context, customerID string, since time.Time) ([]ViewedCategoryRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (:Customer {id: $customerID})-[v:VIEWED]->(p:Product)-[:BELONGS_TO]->(cat:Category)
		WHERE v.ts >= $since
		RETURN cat.id AS category_id, p.id AS product_id
	`, map[string]interface{}{
		"customerID": customerID,
		"since":      since.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent views: %w", err)
	}

	var rows []ViewedCategoryRow
	for result.Next(ctx) {
		record := result.Record()
		rows = append(rows, ViewedCategoryRow{
			CategoryID: uint(recordInt(record, "category_id")),
			ProductID:  recordString(record, "product_id"),
		})
	}
	return rows, result.Err()
}

// ProductsInCategories returns every product in the given categories with
// its distinct purchaser count.
func (s *Store) ProductsInCategories(ctx context.Context, categoryIDs []uint) ([]CategoryProductRow, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	ids := make([]interface{}, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		ids = append(ids, int64(id))
	}

	result, err := session.Run(ctx, `
		MATCH (p:Product)-[:BELONGS_TO]->(cat:Category)
		WHERE cat.id IN $categoryIDs
		OPTIONAL MATCH (buyer:Customer)-[:PURCHASED]->(p)
		RETURN cat.id AS category_id, p.id AS product_id, count(DISTINCT buyer) AS purchasers
	`, map[string]interface{}{"categoryIDs": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to query category products: %w", err)
	}

	var rows []CategoryProductRow
	for result.Next(ctx) {
		record := result.Record()
		rows = append(rows, CategoryProductRow{
			CategoryID: uint(recordInt(record, "category_id")),
			ProductID:  recordString(record, "product_id"),
			Purchasers: recordInt(record, "purchasers"),
		})
	}
	return rows, result.Err()
}

// RatingsAtLeast returns every RATED edge with a score at or above minScore.
func (s *Store) RatingsAtLeast(ctx context.Context, minScore int) ([]RatingEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Customer)-[r:RATED]->(p:Product)
		WHERE r.score >= $minScore
		RETURN c.id AS customer_id, p.id AS product_id, r.score AS score, r.ts AS ts
	`, map[string]interface{}{"minScore": minScore})
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}

	var events []RatingEvent
	for result.Next(ctx) {
		record := result.Record()
		events = append(events, RatingEvent{
			CustomerID: recordString(record, "customer_id"),
			ProductID:  recordString(record, "product_id"),
			Score:      int(recordInt(record, "score")),
			RatedAt:    time.UnixMilli(recordInt(record, "ts")),
		})
	}
	return events, result.Err()
}

// PurchaseEventsFor returns every PURCHASED edge touching the given products.
func (s *Store) PurchaseEventsFor(ctx context.Context, productIDs []string) ([]PurchaseEvent, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	ids := make([]interface{}, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, id)
	}

	result, err := session.Run(ctx, `
		MATCH (c:Customer)-[r:PURCHASED]->(p:Product)
		WHERE p.id IN $productIDs
		RETURN c.id AS customer_id, p.id AS product_id, r.quantity AS quantity, r.ts AS ts
	`, map[string]interface{}{"productIDs": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase events: %w", err)
	}

	var events []PurchaseEvent
	for result.Next(ctx) {
		record := result.Record()
		events = append(events, PurchaseEvent{
			CustomerID:  recordString(record, "customer_id"),
			ProductID:   recordString(record, "product_id"),
			Quantity:    int(recordInt(record, "quantity")),
			PurchasedAt: time.UnixMilli(recordInt(record, "ts")),
		})
	}
	return events, result.Err()
}

// ShortestPath returns the unweighted shortest path between two products over
// the undirected BELONGS_TO/MADE_BY projection, or nil when no path exists
// within maxHops. maxHops is a server-side bound, not caller input; Cypher
// does not allow parameterizing the hop count.
func (s *Store) ShortestPath(ctx context.Context, fromID, toID string, maxHops int) ([]PathNode, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a:Product {id: $fromID}), (b:Product {id: $toID})
		MATCH path = shortestPath((a)-[:BELONGS_TO|MADE_BY*..%d]-(b))
		RETURN [n IN nodes(path) | {labels: labels(n), id: coalesce(toString(n.id), ''), name: coalesce(n.name, '')}] AS nodes
	`, maxHops)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"fromID": fromID,
		"toID":   toID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query shortest path: %w", err)
	}

	if !result.Next(ctx) {
		return nil, result.Err()
	}

	raw, ok := result.Record().Get("nodes")
	if !ok {
		return nil, nil
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, nil
	}

	nodes := make([]PathNode, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		node := PathNode{}
		if id, ok := entry["id"].(string); ok {
			node.ID = id
		}
		if name, ok := entry["name"].(string); ok {
			node.Name = name
		}
		if labels, ok := entry["labels"].([]interface{}); ok {
			for _, label := range labels {
				if l, ok := label.(string); ok {
					node.Kind = strings.ToLower(l)
					break
				}
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Record helpers.

func recordString(record *db.Record, key string) string {
	if value, ok := record.Get(key); ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

func recordInt(record *db.Record, key string) int64 {
	if value, ok := record.Get(key); ok {
		if n, ok := value.(int64); ok {
			return n
		}
	}
	return 0
}

func recordStringList(record *db.Record, key string) []string {
	value, ok := record.Get(key)
	if !ok {
		return nil
	}
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
