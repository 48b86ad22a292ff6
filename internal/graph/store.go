// internal/graph/store.go
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/shopgraph/catalog-backend/internal/config"
)

// Store executes node and edge operations against Neo4j. It owns no business
// logic. Mutations that must be atomic across several statements go through
// an explicit Tx; single-statement operations run in their own session.
type Store struct {
	driver  neo4j.DriverWithContext
	timeout time.Duration
}

func Connect(cfg config.Neo4jConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	return &Store{
		driver:  driver,
		timeout: cfg.OperationTimeout(),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping checks connectivity to the graph database.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Begin opens a write session with an explicit transaction. The caller must
// finish it with Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("failed to begin graph transaction: %w", err)
	}

	return &Tx{
		session: session,
		tx:      tx,
		timeout: s.timeout,
	}, nil
}

// write runs a single mutation statement in its own session.
func (s *Store) write(ctx context.Context, query string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// ProductNodeExists reports whether a product node is present in the graph.
func (s *Store) ProductNodeExists(ctx context.Context, productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Product {id: $productID})
		RETURN count(p) AS count
	`, map[string]interface{}{"productID": productID})
	if err != nil {
		return false, fmt.Errorf("failed to check product node: %w", err)
	}

	if result.Next(ctx) {
		return recordInt(result.Record(), "count") > 0, nil
	}
	return false, result.Err()
}

// ProductEdges returns the current MADE_BY brand and BELONGS_TO category ids
// of a product node. Used to verify compensating reverts.
func (s *Store) ProductEdges(ctx context.Context, productID string) (string, []uint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Product {id: $productID})
		OPTIONAL MATCH (p)-[:MADE_BY]->(b:Brand)
		OPTIONAL MATCH (p)-[:BELONGS_TO]->(c:Category)
		RETURN coalesce(b.name, '') AS brand, collect(DISTINCT c.id) AS categories
	`, map[string]interface{}{"productID": productID})
	if err != nil {
		return "", nil, fmt.Errorf("failed to read product edges: %w", err)
	}

	if result.Next(ctx) {
		record := result.Record()
		brand := recordString(record, "brand")

		var categories []uint
		if raw, ok := record.Get("categories"); ok {
			if list, ok := raw.([]interface{}); ok {
				for _, item := range list {
					if id, ok := item.(int64); ok {
						categories = append(categories, uint(id))
					}
				}
			}
		}
		return brand, categories, nil
	}

	return "", nil, result.Err()
}

// DetachDeleteProduct removes the product node and every edge attached to it.
func (s *Store) DetachDeleteProduct(ctx context.Context, productID string) error {
	err := s.write(ctx, `
		MATCH (p:Product {id: $productID})
		DETACH DELETE p
	`, map[string]interface{}{"productID": productID})
	if err != nil {
		return fmt.Errorf("failed to delete product node: %w", err)
	}
	return nil
}

// DeleteCategoryIfOrphan removes the category node when no product references
// it anymore. The match-and-delete is a single statement, so a concurrent
// edge creation cannot slip between check and delete.
func (s *Store) DeleteCategoryIfOrphan(ctx context.Context, categoryID uint) error {
	err := s.write(ctx, `
		MATCH (c:Category {id: $categoryID})
		WHERE NOT (c)<-[:BELONGS_TO]-(:Product)
		DELETE c
	`, map[string]interface{}{"categoryID": int64(categoryID)})
	if err != nil {
		return fmt.Errorf("failed to delete orphan category: %w", err)
	}
	return nil
}

// DeleteBrandIfOrphan removes the brand node when no product references it.
func (s *Store) DeleteBrandIfOrphan(ctx context.Context, name string) error {
	err := s.write(ctx, `
		MATCH (b:Brand {name: $name})
		WHERE NOT (b)<-[:MADE_BY]-(:Product)
		DELETE b
	`, map[string]interface{}{"name": name})
	if err != nil {
		return fmt.Errorf("failed to delete orphan brand: %w", err)
	}
	return nil
}

// UpsertViewed records a view edge. At most one VIEWED edge per
// customer-product pair; a repeat view refreshes the timestamp.
func (s *Store) UpsertViewed(ctx context.Context, customerID, productID, device string, at time.Time) error {
	err := s.write(ctx, `
		MATCH (p:Product {id: $productID})
		MERGE (c:Customer {id: $customerID})
		MERGE (c)-[v:VIEWED]->(p)
		SET v.ts = $ts, v.device = $device
	`, map[string]interface{}{
		"customerID": customerID,
		"productID":  productID,
		"device":     device,
		"ts":         at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

// CreatePurchased appends a purchase edge. Purchases are append-only; a
// customer buying the same product twice yields two edges.
func (s *Store) CreatePurchased(ctx context.Context, customerID, productID string, quantity int, unitPrice float64, orderID string, at time.Time) error {
	err := s.write(ctx, `
		MATCH (p:Product {id: $productID})
		MERGE (c:Customer {id: $customerID})
		CREATE (c)-[:PURCHASED {ts: $ts, quantity: $quantity, unit_price: $unitPrice, order_id: $orderID}]->(p)
	`, map[string]interface{}{
		"customerID": customerID,
		"productID":  productID,
		"quantity":   quantity,
		"unitPrice":  unitPrice,
		"orderID":    orderID,
		"ts":         at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}
	return nil
}

// UpsertRated records a rating edge. At most one RATED edge per
// customer-product pair; a repeat rating replaces score and comment.
func (s *Store) UpsertRated(ctx context.Context, customerID, productID string, score int, comment string, at time.Time) error {
	err := s.write(ctx, `
		MATCH (p:Product {id: $productID})
		MERGE (c:Customer {id: $customerID})
		MERGE (c)-[r:RATED]->(p)
		SET r.score = $score, r.comment = $comment, r.ts = $ts
	`, map[string]interface{}{
		"customerID": customerID,
		"productID":  productID,
		"score":      score,
		"comment":    comment,
		"ts":         at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}
