// internal/services/fakes_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopgraph/catalog-backend/internal/graph"
	"github.com/shopgraph/catalog-backend/internal/models"
)

// The fakes below stand in for the mongo, neo4j and redis adapters. Both
// stores buffer writes in their transaction objects and only apply them on
// Commit, so commit-ordering and rollback behavior can be asserted against
// the shared opLog.

type fakeDocs struct {
	products map[string]*models.Product
	nextID   int

	opLog *[]string

	failCommit       bool
	unmatchedReplace bool
	updateRefsErr    error
}

func newFakeDocs(opLog *[]string) *fakeDocs {
	return &fakeDocs{
		products: map[string]*models.Product{},
		opLog:    opLog,
	}
}

func (d *fakeDocs) logOp(op string) {
	if d.opLog != nil {
		*d.opLog = append(*d.opLog, op)
	}
}

func (d *fakeDocs) Txn(ctx context.Context) (DocumentTxn, error) {
	return &fakeDocTxn{docs: d, replaces: map[string]*models.Product{}}, nil
}

func (d *fakeDocs) FindByID(ctx context.Context, id string) (*models.Product, error) {
	product, ok := d.products[id]
	if !ok {
		return nil, nil
	}
	copied := *product
	return &copied, nil
}

func (d *fakeDocs) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := d.products[id]
	return ok, nil
}

func (d *fakeDocs) FindAll(ctx context.Context, page, pageSize int, categoryID uint) ([]*models.Product, int64, error) {
	var out []*models.Product
	for _, product := range d.products {
		copied := *product
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (d *fakeDocs) DeleteByID(ctx context.Context, id string) (bool, error) {
	if _, ok := d.products[id]; !ok {
		return false, nil
	}
	delete(d.products, id)
	return true, nil
}

func (d *fakeDocs) UpsertReview(ctx context.Context, id string, review models.Review) error {
	product, ok := d.products[id]
	if !ok {
		return errors.New("no such product")
	}
	kept := product.Reviews[:0]
	for _, r := range product.Reviews {
		if r.CustomerID != review.CustomerID {
			kept = append(kept, r)
		}
	}
	product.Reviews = append(kept, review)
	return nil
}

func (d *fakeDocs) UpdateCategoryRefs(ctx context.Context, fromID, toID uint) ([]string, error) {
	if d.updateRefsErr != nil {
		return nil, d.updateRefsErr
	}
	var affected []string
	for id, product := range d.products {
		changed := false
		next := product.CategoryIDs[:0]
		for _, categoryID := range product.CategoryIDs {
			if categoryID == fromID {
				changed = true
				continue
			}
			next = append(next, categoryID)
		}
		if changed {
			product.CategoryIDs = append(next, toID)
			affected = append(affected, id)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

func (d *fakeDocs) ProductIDsByCategory(ctx context.Context, categoryID uint) ([]string, error) {
	var ids []string
	for id, product := range d.products {
		for _, existing := range product.CategoryIDs {
			if existing == categoryID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *fakeDocs) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if product, ok := d.products[id]; ok {
			names[id] = product.Name
		}
	}
	return names, nil
}

type fakeDocTxn struct {
	docs     *fakeDocs
	inserts  []*models.Product
	replaces map[string]*models.Product
}

func (t *fakeDocTxn) Insert(ctx context.Context, product *models.Product) (string, error) {
	t.docs.nextID++
	id := fmt.Sprintf("%024d", t.docs.nextID)
	copied := *product
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	t.inserts = append(t.inserts, &copied)
	t.replaces[id] = &copied
	return id, nil
}

func (t *fakeDocTxn) ReplaceByID(ctx context.Context, id string, product *models.Product) (bool, error) {
	if t.docs.unmatchedReplace {
		return false, nil
	}
	if _, ok := t.docs.products[id]; !ok {
		return false, nil
	}
	copied := *product
	t.replaces[id] = &copied
	return true, nil
}

func (t *fakeDocTxn) Commit(ctx context.Context) error {
	if t.docs.failCommit {
		return errors.New("session commit failed")
	}
	for id, product := range t.replaces {
		t.docs.products[id] = product
	}
	t.docs.logOp("doc-commit")
	return nil
}

func (t *fakeDocTxn) Abort(ctx context.Context) error {
	t.replaces = map[string]*models.Product{}
	t.inserts = nil
	return nil
}

type fakeNode struct {
	brand      string
	categories map[uint]bool
}

type fakeGraph struct {
	nodes      map[string]*fakeNode
	brands     map[string]bool
	categories map[uint]string

	opLog *[]string

	failCommit bool
	detachErr  error

	// customer interaction edges, keyed by customer then product
	views     map[string]map[string]time.Time
	purchases []graph.PurchaseEvent
	ratings   []graph.RatingEvent
}

func newFakeGraph(opLog *[]string) *fakeGraph {
	return &fakeGraph{
		nodes:      map[string]*fakeNode{},
		brands:     map[string]bool{},
		categories: map[uint]string{},
		opLog:      opLog,
		views:      map[string]map[string]time.Time{},
	}
}

func (g *fakeGraph) logOp(op string) {
	if g.opLog != nil {
		*g.opLog = append(*g.opLog, op)
	}
}

func (g *fakeGraph) node(id string) *fakeNode {
	n, ok := g.nodes[id]
	if !ok {
		n = &fakeNode{categories: map[uint]bool{}}
		g.nodes[id] = n
	}
	return n
}

func (g *fakeGraph) Begin(ctx context.Context) (GraphTx, error) {
	return &fakeGraphTx{graph: g}, nil
}

func (g *fakeGraph) ProductNodeExists(ctx context.Context, productID string) (bool, error) {
	_, ok := g.nodes[productID]
	return ok, nil
}

func (g *fakeGraph) ProductEdges(ctx context.Context, productID string) (string, []uint, error) {
	n, ok := g.nodes[productID]
	if !ok {
		return "", nil, nil
	}
	var categories []uint
	for id := range n.categories {
		categories = append(categories, id)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return n.brand, categories, nil
}

func (g *fakeGraph) DetachDeleteProduct(ctx context.Context, productID string) error {
	if g.detachErr != nil {
		return g.detachErr
	}
	delete(g.nodes, productID)
	return nil
}

func (g *fakeGraph) DeleteCategoryIfOrphan(ctx context.Context, categoryID uint) error {
	for _, n := range g.nodes {
		if n.categories[categoryID] {
			return nil
		}
	}
	delete(g.categories, categoryID)
	g.logOp(fmt.Sprintf("orphan-category:%d", categoryID))
	return nil
}

func (g *fakeGraph) DeleteBrandIfOrphan(ctx context.Context, name string) error {
	for _, n := range g.nodes {
		if n.brand == name {
			return nil
		}
	}
	delete(g.brands, name)
	g.logOp("orphan-brand:" + name)
	return nil
}

type fakeGraphTx struct {
	graph      *fakeGraph
	ops        []func()
	rolledBack bool
}

func (t *fakeGraphTx) MergeBrand(ctx context.Context, name string) error {
	t.ops = append(t.ops, func() { t.graph.brands[name] = true })
	return nil
}

func (t *fakeGraphTx) MergeCategory(ctx context.Context, id uint, name string) error {
	t.ops = append(t.ops, func() { t.graph.categories[id] = name })
	return nil
}

func (t *fakeGraphTx) MergeProductNode(ctx context.Context, productID string) error {
	t.ops = append(t.ops, func() { t.graph.node(productID) })
	return nil
}

func (t *fakeGraphTx) CreateMadeBy(ctx context.Context, productID, brand string) error {
	t.ops = append(t.ops, func() {
		t.graph.brands[brand] = true
		t.graph.node(productID).brand = brand
	})
	return nil
}

func (t *fakeGraphTx) DeleteMadeBy(ctx context.Context, productID, brand string) error {
	t.ops = append(t.ops, func() {
		if n, ok := t.graph.nodes[productID]; ok && n.brand == brand {
			n.brand = ""
		}
	})
	return nil
}

func (t *fakeGraphTx) CreateBelongsTo(ctx context.Context, productID string, categoryID uint) error {
	t.ops = append(t.ops, func() { t.graph.node(productID).categories[categoryID] = true })
	return nil
}

func (t *fakeGraphTx) DeleteBelongsTo(ctx context.Context, productID string, categoryID uint) error {
	t.ops = append(t.ops, func() {
		if n, ok := t.graph.nodes[productID]; ok {
			delete(n.categories, categoryID)
		}
	})
	return nil
}

func (t *fakeGraphTx) ReassignCategoryEdges(ctx context.Context, fromID, toID uint, toName string) error {
	t.ops = append(t.ops, func() {
		t.graph.categories[toID] = toName
		for _, n := range t.graph.nodes {
			if n.categories[fromID] {
				delete(n.categories, fromID)
				n.categories[toID] = true
			}
		}
	})
	return nil
}

func (t *fakeGraphTx) Commit(ctx context.Context) error {
	if t.graph.failCommit {
		return errors.New("transaction commit failed")
	}
	for _, op := range t.ops {
		op()
	}
	t.graph.logOp("graph-commit")
	return nil
}

func (t *fakeGraphTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	t.ops = nil
	return nil
}

// ActivityGraph

func (g *fakeGraph) UpsertViewed(ctx context.Context, customerID, productID, device string, at time.Time) error {
	if g.views[customerID] == nil {
		g.views[customerID] = map[string]time.Time{}
	}
	g.views[customerID][productID] = at
	return nil
}

func (g *fakeGraph) CreatePurchased(ctx context.Context, customerID, productID string, quantity int, unitPrice float64, orderID string, at time.Time) error {
	g.purchases = append(g.purchases, graph.PurchaseEvent{
		CustomerID:  customerID,
		ProductID:   productID,
		PurchasedAt: at,
	})
	return nil
}

func (g *fakeGraph) UpsertRated(ctx context.Context, customerID, productID string, score int, comment string, at time.Time) error {
	kept := g.ratings[:0]
	for _, r := range g.ratings {
		if r.CustomerID != customerID || r.ProductID != productID {
			kept = append(kept, r)
		}
	}
	g.ratings = append(kept, graph.RatingEvent{
		CustomerID: customerID,
		ProductID:  productID,
		Score:      score,
		RatedAt:    at,
	})
	return nil
}

type fakeCategories struct {
	names map[uint]string
}

func (c *fakeCategories) Exists(ctx context.Context, id uint) (bool, error) {
	_, ok := c.names[id]
	return ok, nil
}

func (c *fakeCategories) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	name, ok := c.names[id]
	if !ok {
		return nil, nil
	}
	return &models.Category{ID: id, Name: name}, nil
}

type fakeInvalidator struct {
	invalidated []string
	err         error
}

func (c *fakeInvalidator) Invalidate(ctx context.Context, id string) error {
	if c.err != nil {
		return c.err
	}
	c.invalidated = append(c.invalidated, id)
	return nil
}
