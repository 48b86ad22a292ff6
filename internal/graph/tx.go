// internal/graph/tx.go
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Tx is an explicit graph transaction. All statements run against the same
// server-side transaction and become visible together on Commit.
type Tx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	timeout time.Duration
}

func (t *Tx) run(ctx context.Context, query string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// MergeBrand ensures the brand node exists. MERGE makes concurrent resolvers
// racing on the same name converge on a single node.
func (t *Tx) MergeBrand(ctx context.Context, name string) error {
	err := t.run(ctx, `
		MERGE (b:Brand {name: $name})
	`, map[string]interface{}{"name": name})
	if err != nil {
		return fmt.Errorf("failed to resolve brand %q: %w", name, err)
	}
	return nil
}

// MergeCategory ensures the category node exists. The node caches only the
// relational id and name.
func (t *Tx) MergeCategory(ctx context.Context, id uint, name string) error {
	err := t.run(ctx, `
		MERGE (c:Category {id: $id})
		ON CREATE SET c.name = $name
	`, map[string]interface{}{"id": int64(id), "name": name})
	if err != nil {
		return fmt.Errorf("failed to resolve category %d: %w", id, err)
	}
	return nil
}

// MergeProductNode creates the thin product projection node.
func (t *Tx) MergeProductNode(ctx context.Context, productID string) error {
	err := t.run(ctx, `
		MERGE (p:Product {id: $productID})
	`, map[string]interface{}{"productID": productID})
	if err != nil {
		return fmt.Errorf("failed to create product node: %w", err)
	}
	return nil
}

func (t *Tx) CreateMadeBy(ctx context.Context, productID, brand string) error {
	err := t.run(ctx, `
		MATCH (p:Product {id: $productID}), (b:Brand {name: $brand})
		MERGE (p)-[:MADE_BY]->(b)
	`, map[string]interface{}{"productID": productID, "brand": brand})
	if err != nil {
		return fmt.Errorf("failed to create MADE_BY edge: %w", err)
	}
	return nil
}

func (t *Tx) DeleteMadeBy(ctx context.Context, productID, brand string) error {
	err := t.run(ctx, `
		MATCH (p:Product {id: $productID})-[r:MADE_BY]->(b:Brand {name: $brand})
		DELETE r
	`, map[string]interface{}{"productID": productID, "brand": brand})
	if err != nil {
		return fmt.Errorf("failed to delete MADE_BY edge: %w", err)
	}
	return nil
}

func (t *Tx) CreateBelongsTo(ctx context.Context, productID string, categoryID uint) error {
	err := t.run(ctx, `
		MATCH (p:Product {id: $productID}), (c:Category {id: $categoryID})
		MERGE (p)-[:BELONGS_TO]->(c)
	`, map[string]interface{}{"productID": productID, "categoryID": int64(categoryID)})
	if err != nil {
		return fmt.Errorf("failed to create BELONGS_TO edge: %w", err)
	}
	return nil
}

func (t *Tx) DeleteBelongsTo(ctx context.Context, productID string, categoryID uint) error {
	err := t.run(ctx, `
		MATCH (p:Product {id: $productID})-[r:BELONGS_TO]->(c:Category {id: $categoryID})
		DELETE r
	`, map[string]interface{}{"productID": productID, "categoryID": int64(categoryID)})
	if err != nil {
		return fmt.Errorf("failed to delete BELONGS_TO edge: %w", err)
	}
	return nil
}

// ReassignCategoryEdges re-points every BELONGS_TO edge from one category to
// another, creating the target node if needed.
func (t *Tx) ReassignCategoryEdges(ctx context.Context, fromID, toID uint, toName string) error {
	err := t.run(ctx, `
		MATCH (p:Product)-[r:BELONGS_TO]->(:Category {id: $fromID})
		MERGE (c:Category {id: $toID})
		ON CREATE SET c.name = $toName
		MERGE (p)-[:BELONGS_TO]->(c)
		DELETE r
	`, map[string]interface{}{
		"fromID": int64(fromID),
		"toID":   int64(toID),
		"toName": toName,
	})
	if err != nil {
		return fmt.Errorf("failed to reassign category edges: %w", err)
	}
	return nil
}

// Commit commits the transaction and releases the session.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.session.Close(ctx)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit graph transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction and releases the session.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.session.Close(ctx)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back graph transaction: %w", err)
	}
	return nil
}
