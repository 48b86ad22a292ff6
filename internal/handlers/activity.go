// internal/handlers/activity.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/shopgraph/catalog-backend/internal/services"
	"github.com/shopgraph/catalog-backend/internal/utils"
)

type ActivityHandler struct {
	activityService *services.ActivityService
	readService     *services.ProductReadService
}

func NewActivityHandler(activityService *services.ActivityService, readService *services.ProductReadService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		readService:     readService,
	}
}

type recordViewRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Device     string `json:"device"`
}

// POST /products/:id/view
func (h *ActivityHandler) RecordView(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req recordViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	count, err := h.readService.RecordView(c.Request.Context(), req.CustomerID, id, req.Device)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"view": count,
	})
}

// POST /products/:id/purchase
func (h *ActivityHandler) RecordPurchase(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req services.RecordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.activityService.RecordPurchase(c.Request.Context(), id, &req); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"product_id":  id,
		"customer_id": req.CustomerID,
		"order_id":    req.OrderID,
	})
}

// POST /products/:id/rating
func (h *ActivityHandler) RecordRating(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsObjectID(id) {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req services.RecordRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.activityService.RecordRating(c.Request.Context(), id, &req); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id":  id,
		"customer_id": req.CustomerID,
	})
}
