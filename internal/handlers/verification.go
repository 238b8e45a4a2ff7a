// internal/handlers/verification.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
}

func NewVerificationHandler(verificationService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

func (h *VerificationHandler) lookup(c *gin.Context, input string, method models.VerificationMethod) {
	lang := utils.GetLangFromContext(c)
	meta := requestMeta(c)

	report, err := h.verificationService.Lookup(c.Request.Context(), services.LookupRequest{
		Input:       input,
		Method:      method,
		RequestMeta: meta,
	})
	if err != nil {
		respondError(c, err, "verification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": lookupMessage(lang, report),
		"report":  report,
	})
}

func lookupMessage(lang string, report *services.VerificationReport) string {
	switch {
	case report.IsAuthentic:
		return i18n.T(lang, i18n.KeyVerificationAuthentic)
	case !report.Found:
		return i18n.T(lang, i18n.KeyVerificationNotFound)
	case report.Reason == services.ReasonRecalled:
		return i18n.T(lang, i18n.KeyVerificationRecalled)
	case report.Reason == services.ReasonNoCertificate:
		return i18n.T(lang, i18n.KeyVerificationNoCertificate)
	default:
		return i18n.T(lang, i18n.KeyVerificationNotAuthentic)
	}
}

// GET /verify/:code
func (h *VerificationHandler) VerifyByCode(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	code := c.Param("code")
	if code == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyVerificationInvalid), nil)
		return
	}

	h.lookup(c, code, models.VerificationMethodManualSearch)
}

// POST /verify/scan
func (h *VerificationHandler) Scan(c *gin.Context) {
	var req struct {
		Input  string                    `json:"input" validate:"required,max=4096"`
		Method models.VerificationMethod `json:"method" validate:"omitempty,oneof=qr_scan manual_search api nfc"`
	}
	if !bindJSON(c, &req) {
		return
	}

	h.lookup(c, req.Input, req.Method)
}

// POST /verify/scan-image
func (h *VerificationHandler) ScanImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	img, err := readImage(c)
	if err != nil {
		respondImageError(c, err)
		return
	}

	decoded, err := qrpayload.DecodeImage(img.Data)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRNotRecognized), err.Error())
		return
	}

	h.lookup(c, decoded.Text, models.VerificationMethodQRScan)
}

// POST /verify/products/:id
func (h *VerificationHandler) VerifyProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyProductRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.verificationService.VerifyProduct(c.Request.Context(), c.Param("id"), &req, requestMeta(c))
	if err != nil {
		respondError(c, err, "product")
		return
	}

	message := i18n.T(lang, i18n.KeyVerificationSuccess, int(result.Confidence*100))
	if !result.Verified {
		message = i18n.T(lang, i18n.KeyVerificationFailed)
	}

	utils.SuccessResponse(c, gin.H{
		"message": message,
		"result":  result,
	})
}

// GET /verify/recent
func (h *VerificationHandler) GetRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, err := h.verificationService.RecentVerifications(limit)
	if err != nil {
		respondError(c, err, "verification")
		return
	}

	utils.SuccessResponse(c, gin.H{"verifications": logs})
}
