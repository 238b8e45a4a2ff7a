// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Owner:            c.Query("owner"),
	}

	if status := c.Query("status"); status != "" {
		productStatus := models.ProductStatus(status)
		searchParams.Status = &productStatus
	}

	if verifiedStr := c.Query("verified"); verifiedStr != "" {
		if verified, err := strconv.ParseBool(verifiedStr); err == nil {
			searchParams.Verified = &verified
		}
	}

	products, total, err := h.productService.SearchProducts(searchParams)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Param("id"))
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// PUT /products/:id/status
func (h *ProductHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateStatus(c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductStatusUpdated),
		"product": product,
	})
}

// POST /products/:id/transfer
func (h *ProductHandler) TransferOwnership(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	transfer, err := h.productService.TransferOwnership(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProductTransferred),
		"transfer": transfer,
	})
}

// GET /products/:id/history
func (h *ProductHandler) GetHistory(c *gin.Context) {
	history, err := h.productService.History(c.Param("id"))
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, history)
}
