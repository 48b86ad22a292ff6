// internal/handlers/recommendation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/shopgraph/catalog-backend/internal/services"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

type RecommendationHandler struct {
	recommendationService *services.RecommendationService
}

func NewRecommendationHandler(recommendationService *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
	}
}

// GET /products/:id/frequently-bought-together
func (h *RecommendationHandler) GetFrequentlyBoughtTogether(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	limit := parseLimit(c, 10, 50)

	recommendations, err := h.recommendationService.FrequentlyBoughtTogether(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id":      id,
		"recommendations": recommendations,
	})
}

// GET /customers/:id/similar-picks
func (h *RecommendationHandler) GetSimilarCustomerPicks(c *gin.Context) {
	customerID := c.Param("id")
	if customerID == "" {
		utils.BadRequestResponse(c, "Invalid customer ID", nil)
		return
	}

	limit := parseLimit(c, 10, 50)

	recommendations, err := h.recommendationService.SimilarCustomerPicks(c.Request.Context(), customerID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"customer_id":     customerID,
		"recommendations": recommendations,
	})
}

// GET /customers/:id/category-picks
func (h *RecommendationHandler) GetCategoryPicks(c *gin.Context) {
	customerID := c.Param("id")
	if customerID == "" {
		utils.BadRequestResponse(c, "Invalid customer ID", nil)
		return
	}

	limit := parseLimit(c, 10, 50)

	recommendations, err := h.recommendationService.CategoryPicks(c.Request.Context(), customerID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"customer_id":     customerID,
		"recommendations": recommendations,
	})
}

// GET /products/:id/path/:target
func (h *RecommendationHandler) GetProductPath(c *gin.Context) {
	fromID := c.Param("id")
	toID := c.Param("target")
	if !utils.IsObjectID(fromID) || !utils.IsObjectID(toID) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	path, err := h.recommendationService.PathBetween(c.Request.Context(), fromID, toID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"path": path,
	})
}

// GET /influencers
func (h *RecommendationHandler) GetInfluencers(c *gin.Context) {
	limit := parseLimit(c, 10, 50)

	influencers, err := h.recommendationService.Influencers(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"influencers": influencers,
	})
}
