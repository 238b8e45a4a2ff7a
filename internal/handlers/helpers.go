// internal/handlers/helpers.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/wallet"
)

// respondError maps service errors to API responses. resource names the i18n namespace
// used for not found messages.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrAlreadyExists):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrCertificateRecall):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyCertificateAlreadyRecall))
	case errors.Is(err, models.ErrInvalidTransition):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrNoTokenID):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCertificateNoToken), nil)
	case errors.Is(err, services.ErrInvalidInput):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, wallet.ErrProviderMissing):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "WALLET_UNAVAILABLE", i18n.T(lang, i18n.KeyWalletProviderMissing), nil)
	case errors.Is(err, wallet.ErrNoContract), errors.Is(err, services.ErrSimulatedDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "CONTRACT_UNAVAILABLE", i18n.T(lang, i18n.KeyWalletNoContract), nil)
	case errors.Is(err, wallet.ErrNoAccounts):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "WALLET_LOCKED", i18n.T(lang, i18n.KeyWalletNoAccounts), nil)
	case wallet.IsUserRejected(err):
		utils.ErrorResponse(c, http.StatusConflict, "USER_REJECTED", i18n.T(lang, i18n.KeyWalletUserRejected), nil)
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternalError))
	}
}

// bindJSON binds and validates a JSON body. It writes the error response and returns false
// when the body is unusable.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func currentUserID(c *gin.Context) (*uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return nil, false
	}
	id, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := utils.GetUserRoleFromContext(c)
	return role == string(models.UserRoleAdmin)
}

func requestMeta(c *gin.Context) services.RequestMeta {
	userID, _ := currentUserID(c)
	return services.RequestMeta{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// readImage accepts a multipart "image" file or a JSON body {"image": "data:image/...;base64,..."}.
// Only the first uploaded file is used.
func readImage(c *gin.Context) (*analyzer.Image, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		files := form.File["image"]
		if len(files) == 0 {
			return nil, analyzer.ErrEmptyImage
		}
		header := files[0]
		if header.Size > analyzer.MaxImageSize {
			return nil, analyzer.ErrImageTooLarge
		}
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, analyzer.MaxImageSize+1))
		if err != nil {
			return nil, err
		}
		return analyzer.ImageFromBytes(data, header.Header.Get("Content-Type"))
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return analyzer.ImageFromDataURI(req.Image)
}

func respondImageError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, analyzer.ErrEmptyImage):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyImageRequired), nil)
	case errors.Is(err, analyzer.ErrImageTooLarge):
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", i18n.T(lang, i18n.KeyFileTooLarge), nil)
	default:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyImageInvalid), err.Error())
	}
}
