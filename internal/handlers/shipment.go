// internal/handlers/shipment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
)

type ShipmentHandler struct {
	shipmentService *services.ShipmentService
}

func NewShipmentHandler(shipmentService *services.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
	}
}

// POST /shipments
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateShipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	shipment, err := h.shipmentService.CreateShipment(&req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyShipmentCreated),
		"shipment": shipment,
	})
}

// GET /products/:id/shipments
func (h *ShipmentHandler) ListByProduct(c *gin.Context) {
	shipments, err := h.shipmentService.ListByProduct(c.Param("id"))
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{"shipments": shipments})
}

// PUT /shipments/:id/status
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	var req services.UpdateShipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	shipment, err := h.shipmentService.UpdateStatus(id, &req)
	if err != nil {
		respondError(c, err, "shipment")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyShipmentUpdated),
		"shipment": shipment,
	})
}
