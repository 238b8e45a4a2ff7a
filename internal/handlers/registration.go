// internal/handlers/registration.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/workflow"
)

type RegistrationHandler struct {
	manager *workflow.Manager
}

func NewRegistrationHandler(manager *workflow.Manager) *RegistrationHandler {
	return &RegistrationHandler{
		manager: manager,
	}
}

// load returns the registration named in the path when the caller owns it.
func (h *RegistrationHandler) load(c *gin.Context) (*workflow.Registration, bool) {
	reg, err := h.manager.Get(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "registration")
		return nil, false
	}
	userID, _ := utils.GetUserIDFromContext(c)
	if reg.Owner() != userID && !isAdmin(c) {
		// do not reveal registrations of other users
		utils.NotFoundResponse(c, "registration")
		return nil, false
	}
	return reg, true
}

func respondWorkflowError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, workflow.ErrBusy):
		utils.ErrorResponse(c, http.StatusConflict, "BUSY", i18n.T(lang, i18n.KeyRegistrationBusy), nil)
	case errors.Is(err, workflow.ErrWrongStep):
		utils.ErrorResponse(c, http.StatusConflict, "WRONG_STEP", i18n.T(lang, i18n.KeyRegistrationWrongStep), err.Error())
	case errors.Is(err, workflow.ErrImageRequired):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyImageRequired), nil)
	default:
		if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
			utils.ValidationErrorResponse(c, validationErrors)
			return
		}
		respondError(c, err, "registration")
	}
}

// POST /registrations
func (h *RegistrationHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	reg := h.manager.Create(userID)

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyRegistrationCreated),
		"registration": reg.Snapshot(),
	})
}

// GET /registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, ok := h.load(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, gin.H{"registration": reg.Snapshot()})
}

// PUT /registrations/:id/details
func (h *RegistrationHandler) SubmitDetails(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	reg, ok := h.load(c)
	if !ok {
		return
	}

	var req workflow.Details
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if err := reg.SubmitDetails(req); err != nil {
		respondWorkflowError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyRegistrationDetailsSaved),
		"registration": reg.Snapshot(),
	})
}

// POST /registrations/:id/image
func (h *RegistrationHandler) AttachImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	reg, ok := h.load(c)
	if !ok {
		return
	}

	img, err := readImage(c)
	if err != nil {
		respondImageError(c, err)
		return
	}

	if err := reg.AttachImage(img); err != nil {
		respondWorkflowError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyRegistrationImageAttached),
		"registration": reg.Snapshot(),
	})
}

// POST /registrations/:id/verify
func (h *RegistrationHandler) Verify(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	reg, ok := h.load(c)
	if !ok {
		return
	}

	// a client disconnect must not abandon a transaction already sent
	outcome, err := reg.Verify(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	status := http.StatusOK
	switch outcome.Kind {
	case workflow.OutcomeRejected:
		status = http.StatusUnprocessableEntity
	case workflow.OutcomeFailed:
		status = http.StatusBadGateway
		if errors.Is(outcome.Err, services.ErrAlreadyExists) {
			status = http.StatusConflict
		}
	}

	c.JSON(status, utils.APIResponse{
		Success: outcome.Kind == workflow.OutcomeCompleted,
		Data: gin.H{
			"outcome":      outcome,
			"message":      outcome.Message(lang),
			"registration": reg.Snapshot(),
		},
	})
}

// POST /registrations/:id/dismiss
func (h *RegistrationHandler) Dismiss(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	reg, ok := h.load(c)
	if !ok {
		return
	}

	if err := reg.Dismiss(); err != nil {
		respondWorkflowError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyRegistrationDismissed),
		"registration": reg.Snapshot(),
	})
}

// DELETE /registrations/:id
func (h *RegistrationHandler) Delete(c *gin.Context) {
	reg, ok := h.load(c)
	if !ok {
		return
	}
	if reg.Snapshot().Busy {
		respondWorkflowError(c, workflow.ErrBusy)
		return
	}
	h.manager.Delete(reg.ID())
	c.Status(http.StatusNoContent)
}
