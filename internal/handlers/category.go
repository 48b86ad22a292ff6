// internal/handlers/category.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/shopgraph/catalog-backend/internal/services"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

type CategoryHandler struct {
	catalogService *services.CatalogService
}

func NewCategoryHandler(catalogService *services.CatalogService) *CategoryHandler {
	return &CategoryHandler{
		catalogService: catalogService,
	}
}

type reassignCategoryRequest struct {
	FromID uint `json:"from_id" binding:"required"`
	ToID   uint `json:"to_id" binding:"required"`
}

// POST /categories/reassign
func (h *CategoryHandler) ReassignCategory(c *gin.Context) {
	var req reassignCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	affected, err := h.catalogService.ReassignCategory(c.Request.Context(), req.FromID, req.ToID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"from_id":           req.FromID,
		"to_id":             req.ToID,
		"products_affected": affected,
	})
}
