// internal/services/activity_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopgraph/catalog-backend/internal/models"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

// ActivityService records customer purchases and ratings. Purchases are
// append-only edges; ratings upsert the customer-product edge and mirror a
// review into the product document.
type ActivityService struct {
	docs  DocumentStore
	graph ActivityGraph
	cache CacheInvalidator
}

type RecordPurchaseRequest struct {
	CustomerID string  `json:"customer_id" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	UnitPrice  float64 `json:"unit_price" validate:"min=0"`
	OrderID    string  `json:"order_id" validate:"required"`
}

type RecordRatingRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Score      int    `json:"score" validate:"required,min=1,max=5"`
	Comment    string `json:"comment,omitempty" validate:"max=2000"`
}

func NewActivityService(docs DocumentStore, activityGraph ActivityGraph, cacheInvalidator CacheInvalidator) *ActivityService {
	return &ActivityService{
		docs:  docs,
		graph: activityGraph,
		cache: cacheInvalidator,
	}
}

// RecordPurchase appends a PURCHASED edge for the customer-product pair.
func (s *ActivityService) RecordPurchase(ctx context.Context, productID string, req *RecordPurchaseRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exists, err := s.docs.ExistsByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !exists {
		return ErrProductNotFound
	}

	if err := s.graph.CreatePurchased(ctx, req.CustomerID, productID, req.Quantity, req.UnitPrice, req.OrderID, time.Now()); err != nil {
		return fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}
	return nil
}

// RecordRating upserts the RATED edge and the embedded document review, then
// invalidates the cached snapshot since the document changed.
func (s *ActivityService) RecordRating(ctx context.Context, productID string, req *RecordRatingRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exists, err := s.docs.ExistsByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if !exists {
		return ErrProductNotFound
	}

	now := time.Now()

	if err := s.graph.UpsertRated(ctx, req.CustomerID, productID, req.Score, req.Comment, now); err != nil {
		return fmt.Errorf("%w: %v", ErrGraphWrite, err)
	}

	review := models.Review{
		CustomerID: req.CustomerID,
		Rating:     req.Score,
		Comment:    req.Comment,
		CreatedAt:  now,
	}
	if err := s.docs.UpsertReview(ctx, productID, review); err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	if err := s.cache.Invalidate(ctx, productID); err != nil {
		logrus.WithError(err).WithField("product_id", productID).Warn("Cache invalidation failed")
	}
	return nil
}
