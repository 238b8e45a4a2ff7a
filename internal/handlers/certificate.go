// internal/handlers/certificate.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
)

type CertificateHandler struct {
	certificateService *services.CertificateService
}

func NewCertificateHandler(certificateService *services.CertificateService) *CertificateHandler {
	return &CertificateHandler{
		certificateService: certificateService,
	}
}

// GET /certificates
func (h *CertificateHandler) GetCertificates(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	includeRecalled, _ := strconv.ParseBool(c.DefaultQuery("include_recalled", "false"))

	certs, total, err := h.certificateService.ListCertificates(params, includeRecalled)
	if err != nil {
		respondError(c, err, "certificate")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(certs, total, params))
}

// GET /certificates/:productId
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	cert, err := h.certificateService.GetByProduct(c.Param("productId"))
	if err != nil {
		respondError(c, err, "certificate")
		return
	}

	utils.SuccessResponse(c, gin.H{"certificate": cert})
}

// POST /certificates/:productId/recall
func (h *CertificateHandler) Recall(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RecallRequest
	if !bindJSON(c, &req) {
		return
	}

	cert, err := h.certificateService.Recall(c.Param("productId"), &req)
	if err != nil {
		respondError(c, err, "certificate")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyCertificateRecalled),
		"certificate": cert,
	})
}

// PUT /certificates/:productId/score
func (h *CertificateHandler) AdjustScore(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AdjustScoreRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, _ := currentUserID(c)
	cert, err := h.certificateService.AdjustScore(c.Param("productId"), userID, &req)
	if err != nil {
		respondError(c, err, "certificate")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyCertificateScoreAdjusted),
		"certificate": cert,
	})
}
