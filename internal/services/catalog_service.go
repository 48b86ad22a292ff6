// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shopgraph/catalog-backend/internal/models"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

// CatalogService coordinates product writes across the document store and
// the graph store. The two have no shared transaction manager, so the
// coordinator sequences them (graph commit first, then document commit) and
// falls back to compensating actions when the seam between the two commits
// fails.
type CatalogService struct {
	docs       DocumentStore
	graph      GraphStore
	categories CategoryLookup
	cache      CacheInvalidator
}

type CreateProductRequest struct {
	Name        string                 `json:"name" validate:"required,min=2,max=255"`
	Description string                 `json:"description,omitempty"`
	Price       float64                `json:"price" validate:"min=0"`
	Brand       string                 `json:"brand" validate:"required,max=100"`
	CategoryIDs []uint                 `json:"category_ids" validate:"required,min=1,dive,min=1"`
	Stock       int                    `json:"stock" validate:"min=0"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

func NewCatalogService(docs DocumentStore, graphStore GraphStore, categories CategoryLookup, cacheInvalidator CacheInvalidator) *CatalogService {
	return &CatalogService{
		docs:       docs,
		graph:      graphStore,
		categories: categories,
		cache:      cacheInvalidator,
	}
}

// CreateProduct inserts the product document and its graph projection
// together. The graph transaction commits first; if the document commit then
// fails, the just-created node and edges are deleted as a compensating
// action.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Fail fast before touching either store: every referenced category must
	// exist in the relational store.
	categoryNames, err := s.resolveCategoryNames(ctx, req.CategoryIDs, true)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		CategoryIDs: req.CategoryIDs,
		Stock:       req.Stock,
		Reserved:    0,
		Attributes:  req.Attributes,
	}
	product.Normalize()

	docTxn, err := s.docs.Txn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	graphTx, err := s.graph.Begin(ctx)
	if err != nil {
		docTxn.Abort(ctx)
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	abortBoth := func() {
		graphTx.Rollback(ctx)
		docTxn.Abort(ctx)
	}

	if err := graphTx.MergeBrand(ctx, req.Brand); err != nil {
		abortBoth()
		return nil, fmt.Errorf("%w: %v", ErrBrandResolution, err)
	}

	for _, categoryID := range req.CategoryIDs {
		if err := graphTx.MergeCategory(ctx, categoryID, categoryNames[categoryID]); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
	}

	id, err := docTxn.Insert(ctx, product)
	if err != nil {
		abortBoth()
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	if err := graphTx.MergeProductNode(ctx, id); err != nil {
		abortBoth()
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}
	if err := graphTx.CreateMadeBy(ctx, id, req.Brand); err != nil {
		abortBoth()
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}
	for _, categoryID := range req.CategoryIDs {
		if err := graphTx.CreateBelongsTo(ctx, id, categoryID); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
	}

	// Graph commits first. A timeout here counts as a failure and rolls the
	// document transaction back like any other error.
	if err := graphTx.Commit(ctx); err != nil {
		docTxn.Abort(ctx)
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	if err := docTxn.Commit(ctx); err != nil {
		// The graph already committed; undo it or report the dangling node.
		if cerr := s.removeGraphProduct(ctx, id); cerr != nil {
			logrus.WithError(cerr).WithField("product_id", id).
				Error("Compensating graph delete failed after document commit failure")
			return nil, &CompensationError{ProductID: id, Op: "create", Cause: cerr}
		}
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	s.invalidate(ctx, id)
	return product, nil
}

// UpdateProduct applies a patch to the document and re-points graph edges
// when the brand or the category list changed. When neither changed the
// graph is skipped entirely.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	current, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if current == nil {
		return nil, ErrProductNotFound
	}

	updated := *current
	patch.Apply(&updated)

	if updated.Price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", ErrInvalidInput)
	}
	if updated.Stock < 0 || updated.Reserved < 0 {
		return nil, fmt.Errorf("%w: stock and reserved must be non-negative", ErrInvalidInput)
	}
	if updated.Reserved > updated.Stock {
		return nil, fmt.Errorf("%w: reserved cannot exceed stock", ErrInvalidInput)
	}
	if len(updated.CategoryIDs) == 0 {
		return nil, fmt.Errorf("%w: category list cannot be empty", ErrInvalidInput)
	}
	updated.Normalize()

	brandChanged := updated.Brand != current.Brand
	added, removed := diffCategories(current.CategoryIDs, updated.CategoryIDs)

	if !brandChanged && len(added) == 0 && len(removed) == 0 {
		return s.updateDocumentOnly(ctx, id, &updated)
	}

	addedNames, err := s.resolveCategoryNames(ctx, added, true)
	if err != nil {
		return nil, err
	}
	// Names for removed categories are only needed if the update has to be
	// compensated; a missing row degrades to an empty cached name.
	removedNames, _ := s.resolveCategoryNames(ctx, removed, false)

	// The document must still exist immediately before the graph is touched;
	// a concurrent delete must not win a recreated dangling node.
	if err := s.ensureDocumentExists(ctx, id); err != nil {
		return nil, err
	}

	docTxn, err := s.docs.Txn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	graphTx, err := s.graph.Begin(ctx)
	if err != nil {
		docTxn.Abort(ctx)
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	abortBoth := func() {
		graphTx.Rollback(ctx)
		docTxn.Abort(ctx)
	}

	if brandChanged {
		if err := graphTx.MergeBrand(ctx, updated.Brand); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrBrandResolution, err)
		}
		if err := graphTx.DeleteMadeBy(ctx, id, current.Brand); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
		if err := graphTx.CreateMadeBy(ctx, id, updated.Brand); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
	}

	for _, categoryID := range removed {
		if err := graphTx.DeleteBelongsTo(ctx, id, categoryID); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
	}
	for _, categoryID := range added {
		if err := graphTx.MergeCategory(ctx, categoryID, addedNames[categoryID]); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
		if err := graphTx.CreateBelongsTo(ctx, id, categoryID); err != nil {
			abortBoth()
			return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
		}
	}

	matched, err := docTxn.ReplaceByID(ctx, id, &updated)
	if err != nil {
		abortBoth()
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !matched {
		abortBoth()
		return nil, ErrConcurrentModification
	}

	// Re-check right before the graph becomes visible.
	if err := s.ensureDocumentExists(ctx, id); err != nil {
		abortBoth()
		return nil, err
	}

	if err := graphTx.Commit(ctx); err != nil {
		docTxn.Abort(ctx)
		return nil, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	if err := docTxn.Commit(ctx); err != nil {
		if cerr := s.revertUpdateEdges(ctx, id, current, &updated, added, removed, removedNames); cerr != nil {
			logrus.WithError(cerr).WithField("product_id", id).
				Error("Compensating graph revert failed after document commit failure")
			return nil, &CompensationError{ProductID: id, Op: "update", Cause: cerr}
		}
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	s.invalidate(ctx, id)
	return &updated, nil
}

// DeleteProduct removes the document first, then the graph node and its
// edges, then runs the non-transactional orphan-cleanup phase.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	current, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if current == nil {
		return ErrProductNotFound
	}

	deleted, err := s.docs.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !deleted {
		return ErrProductNotFound
	}

	if err := s.removeGraphProduct(ctx, id); err != nil {
		// The document is gone but the node remains: the stores disagree.
		logrus.WithError(err).WithField("product_id", id).
			Error("Graph node delete failed after document delete")
		return &CompensationError{ProductID: id, Op: "delete", Cause: err}
	}

	s.cleanupOrphans(ctx, current.Brand, current.CategoryIDs)
	s.invalidate(ctx, id)
	return nil
}

// ReassignCategory moves every product from one category to another: graph
// edges first, then the documents, then cache invalidation per affected
// product. Returns the number of products touched.
func (s *CatalogService) ReassignCategory(ctx context.Context, fromID, toID uint) (int, error) {
	if fromID == toID {
		return 0, fmt.Errorf("%w: source and target category are the same", ErrInvalidInput)
	}

	target, err := s.categories.FindByID(ctx, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up category %d: %w", toID, err)
	}
	if target == nil {
		return 0, fmt.Errorf("%w: %d", ErrCategoryNotFound, toID)
	}

	// Capture the operation's scope up front. The compensating revert may
	// only touch these products, and products already in the target category
	// must keep their edge if it runs.
	moved, err := s.docs.ProductIDsByCategory(ctx, fromID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if len(moved) == 0 {
		return 0, nil
	}
	alreadyInTarget, err := s.docs.ProductIDsByCategory(ctx, toID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	graphTx, err := s.graph.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}
	if err := graphTx.ReassignCategoryEdges(ctx, fromID, toID, target.Name); err != nil {
		graphTx.Rollback(ctx)
		return 0, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}
	if err := graphTx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	ids, err := s.docs.UpdateCategoryRefs(ctx, fromID, toID)
	if err != nil {
		if cerr := s.revertCategoryReassign(ctx, fromID, toID, moved, toSet(alreadyInTarget)); cerr != nil {
			logrus.WithError(cerr).WithFields(logrus.Fields{
				"from_category": fromID,
				"to_category":   toID,
			}).Error("Compensating category revert failed after document bulk update failure")
			return 0, &CompensationError{Op: "reassign-category", Cause: cerr}
		}
		return 0, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	if err := s.graph.DeleteCategoryIfOrphan(ctx, fromID); err != nil {
		logrus.WithError(err).WithField("category_id", fromID).
			Warn("Orphan category cleanup failed")
	}

	for _, id := range ids {
		s.invalidate(ctx, id)
	}
	return len(ids), nil
}

// resolveCategoryNames loads category names from the relational store. With
// strict set, an unknown id fails with ErrCategoryNotFound.
func (s *CatalogService) resolveCategoryNames(ctx context.Context, ids []uint, strict bool) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	for _, id := range ids {
		category, err := s.categories.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up category %d: %w", id, err)
		}
		if category == nil {
			if strict {
				return nil, fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
			}
			names[id] = ""
			continue
		}
		names[id] = category.Name
	}
	return names, nil
}

func (s *CatalogService) updateDocumentOnly(ctx context.Context, id string, updated *models.Product) (*models.Product, error) {
	docTxn, err := s.docs.Txn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	matched, err := docTxn.ReplaceByID(ctx, id, updated)
	if err != nil {
		docTxn.Abort(ctx)
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !matched {
		docTxn.Abort(ctx)
		return nil, ErrConcurrentModification
	}

	if err := docTxn.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	s.invalidate(ctx, id)
	return updated, nil
}

func (s *CatalogService) ensureDocumentExists(ctx context.Context, id string) error {
	exists, err := s.docs.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !exists {
		return ErrConcurrentModification
	}
	return nil
}

// removeGraphProduct deletes the product node and confirms it is gone. A
// delete that reports success but leaves the node behind still counts as a
// failed compensation.
func (s *CatalogService) removeGraphProduct(ctx context.Context, id string) error {
	if err := s.graph.DetachDeleteProduct(ctx, id); err != nil {
		return err
	}

	exists, err := s.graph.ProductNodeExists(ctx, id)
	if err != nil {
		return fmt.Errorf("could not confirm node removal: %w", err)
	}
	if exists {
		return errors.New("product node still present after compensating delete")
	}
	return nil
}

// revertUpdateEdges restores the pre-update edge set after the graph commit
// succeeded but the document commit failed, then confirms the revert took.
func (s *CatalogService) revertUpdateEdges(ctx context.Context, id string, before, after *models.Product, added, removed []uint, removedNames map[uint]string) error {
	tx, err := s.graph.Begin(ctx)
	if err != nil {
		return err
	}

	if after.Brand != before.Brand {
		if err := tx.MergeBrand(ctx, before.Brand); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.DeleteMadeBy(ctx, id, after.Brand); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.CreateMadeBy(ctx, id, before.Brand); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}

	for _, categoryID := range added {
		if err := tx.DeleteBelongsTo(ctx, id, categoryID); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}
	for _, categoryID := range removed {
		if err := tx.MergeCategory(ctx, categoryID, removedNames[categoryID]); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.CreateBelongsTo(ctx, id, categoryID); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Confirm the revert instead of assuming it: the edge set must match the
	// pre-update state.
	brand, categories, err := s.graph.ProductEdges(ctx, id)
	if err != nil {
		return fmt.Errorf("could not confirm edge revert: %w", err)
	}
	if brand != before.Brand || !sameCategorySet(categories, before.CategoryIDs) {
		return errors.New("edge set does not match pre-update state after revert")
	}
	return nil
}

// revertCategoryReassign puts the moved products' BELONGS_TO edges back on
// the source category. Only the moved ids are touched: a bulk edge flip on
// the target category would also drag products that belonged to it before
// the operation. Moved products that referenced the target category all
// along keep that edge.
func (s *CatalogService) revertCategoryReassign(ctx context.Context, fromID, toID uint, moved []string, keepInTarget map[string]bool) error {
	source, err := s.categories.FindByID(ctx, fromID)
	name := ""
	if err == nil && source != nil {
		name = source.Name
	}

	tx, err := s.graph.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.MergeCategory(ctx, fromID, name); err != nil {
		tx.Rollback(ctx)
		return err
	}
	for _, id := range moved {
		if err := tx.CreateBelongsTo(ctx, id, fromID); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if keepInTarget[id] {
			continue
		}
		if err := tx.DeleteBelongsTo(ctx, id, toID); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Confirm the revert instead of assuming it.
	for _, id := range moved {
		_, categories, err := s.graph.ProductEdges(ctx, id)
		if err != nil {
			return fmt.Errorf("could not confirm edge revert: %w", err)
		}
		if !hasCategory(categories, fromID) || (hasCategory(categories, toID) && !keepInTarget[id]) {
			return fmt.Errorf("edges for product %s do not match pre-reassign state after revert", id)
		}
	}
	return nil
}

// cleanupOrphans is the non-transactional cleanup phase of delete. Failures
// only cost tidiness, so they are logged and swallowed.
func (s *CatalogService) cleanupOrphans(ctx context.Context, brand string, categoryIDs []uint) {
	if err := s.graph.DeleteBrandIfOrphan(ctx, brand); err != nil {
		logrus.WithError(err).WithField("brand", brand).Warn("Orphan brand cleanup failed")
	}
	for _, categoryID := range categoryIDs {
		if err := s.graph.DeleteCategoryIfOrphan(ctx, categoryID); err != nil {
			logrus.WithError(err).WithField("category_id", categoryID).Warn("Orphan category cleanup failed")
		}
	}
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logrus.WithError(err).WithField("product_id", id).Warn("Cache invalidation failed")
	}
}

// diffCategories returns the ids present only in next (added) and only in
// prev (removed).
func diffCategories(prev, next []uint) (added, removed []uint) {
	prevSet := make(map[uint]bool, len(prev))
	for _, id := range prev {
		prevSet[id] = true
	}
	nextSet := make(map[uint]bool, len(next))
	for _, id := range next {
		nextSet[id] = true
	}

	for _, id := range next {
		if !prevSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if !nextSet[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func sameCategorySet(a, b []uint) bool {
	set := make(map[uint]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	if len(set) != len(uniqueIDs(b)) {
		return false
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

func hasCategory(ids []uint, id uint) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
