// internal/handlers/tools.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/qrpayload"
	"github.com/apexchain/apex-backend/internal/utils"
)

// ToolsHandler exposes the analyzer and the QR codec without the registration workflow.
type ToolsHandler struct {
	analyzer analyzer.AuthenticityAnalyzer
}

func NewToolsHandler(a analyzer.AuthenticityAnalyzer) *ToolsHandler {
	return &ToolsHandler{
		analyzer: a,
	}
}

// POST /analyze
func (h *ToolsHandler) Analyze(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	img, err := readImage(c)
	if err != nil {
		respondImageError(c, err)
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), img)
	if err != nil {
		logrus.WithError(err).Warn("Image analysis failed")
		status := http.StatusInternalServerError
		if errors.Is(err, analyzer.ErrAnalysisFailed) {
			status = http.StatusBadGateway
		}
		utils.ErrorResponse(c, status, "ANALYSIS_FAILED", i18n.T(lang, i18n.KeyAnalysisFailed), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"analysis":      analysis,
		"can_mint":      analyzer.PassesMintThreshold(analysis.Score),
		"minimum_score": analyzer.MintThreshold,
	})
}

type encodeQRRequest struct {
	Payload *qrpayload.Payload `json:"payload"`
	Text    string             `json:"text" validate:"max=2048"`
}

// POST /qr/encode
func (h *ToolsHandler) EncodeQR(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req encodeQRRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		png []byte
		err error
	)
	switch {
	case req.Payload != nil && req.Payload.ProductID != "":
		png, err = qrpayload.Encode(*req.Payload)
	case strings.TrimSpace(req.Text) != "":
		png, err = qrpayload.EncodeText(strings.TrimSpace(req.Text))
	default:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRInvalidInput), nil)
		return
	}
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRInvalidInput), err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"qr_code": qrpayload.DataURI(png),
	})
}

// POST /qr/decode accepts {"text": "..."} or an image upload.
func (h *ToolsHandler) DecodeQR(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		img, err := readImage(c)
		if err != nil {
			respondImageError(c, err)
			return
		}
		result, err := qrpayload.DecodeImage(img.Data)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRNotRecognized), err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{"result": result, "product_id": result.ProductID()})
		return
	}

	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRInvalidInput), err.Error())
		return
	}

	var result qrpayload.Result
	switch {
	case req.Image != "":
		img, err := analyzer.ImageFromDataURI(req.Image)
		if err != nil {
			respondImageError(c, err)
			return
		}
		if result, err = qrpayload.DecodeImage(img.Data); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRNotRecognized), err.Error())
			return
		}
	case strings.TrimSpace(req.Text) != "":
		result = qrpayload.Decode(req.Text)
	default:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyQRInvalidInput), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"result": result, "product_id": result.ProductID()})
}
