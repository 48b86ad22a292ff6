// internal/handlers/product.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopgraph/catalog-backend/internal/models"
	"github.com/shopgraph/catalog-backend/internal/services"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

type ProductHandler struct {
	catalogService *services.CatalogService
	readService    *services.ProductReadService
}

func NewProductHandler(catalogService *services.CatalogService, readService *services.ProductReadService) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		readService:    readService,
	}
}

// respondServiceError maps service errors onto the response envelope. A
// failed compensation gets its own code so operators can spot stores that
// need manual reconciliation.
func respondServiceError(c *gin.Context, err error) {
	var compErr *services.CompensationError
	if errors.As(err, &compErr) {
		utils.ErrorResponse(c, 500, "COMPENSATION_FAILED", "Stores may be inconsistent and need manual reconciliation", gin.H{
			"product_id": compErr.ProductID,
			"operation":  compErr.Op,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product")
	case errors.Is(err, services.ErrCategoryNotFound):
		utils.NotFoundResponse(c, "Category")
	case errors.Is(err, services.ErrConcurrentModification):
		utils.ConflictResponse(c, "Product was modified concurrently, retry the request")
	case errors.Is(err, services.ErrInvalidInput):
		utils.BadRequestResponse(c, err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var categoryID uint
	if params.Category != "" {
		parsed, err := strconv.ParseUint(params.Category, 10, 32)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid category ID", nil)
			return
		}
		categoryID = uint(parsed)
	}

	products, total, err := h.readService.ListProducts(c.Request.Context(), params, categoryID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	product, err := h.readService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"product": product,
	})
}

// PATCH /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"deleted": id,
	})
}

// GET /products/most-viewed
func (h *ProductHandler) GetMostViewed(c *gin.Context) {
	limit := parseLimit(c, 10, 50)

	entries, err := h.readService.MostViewed(c.Request.Context(), limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": entries,
	})
}

func parseLimit(c *gin.Context, fallback, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit < 1 || limit > max {
		return fallback
	}
	return limit
}
