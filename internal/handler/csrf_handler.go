package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openballot/openballot-api/internal/middleware"
	appErrors "github.com/openballot/openballot-api/pkg/errors"
	"github.com/openballot/openballot-api/pkg/response"
)

// CSRFHandler mints anti-forgery tokens for browser clients.
type CSRFHandler struct {
	guard *middleware.CSRFGuard
}

// NewCSRFHandler constructs the handler.
func NewCSRFHandler(guard *middleware.CSRFGuard) *CSRFHandler {
	return &CSRFHandler{guard: guard}
}

// Token godoc
// @Summary Issue a CSRF token
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /csrf [get]
func (h *CSRFHandler) Token(c *gin.Context) {
	if h.guard == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "csrf guard not configured"))
		return
	}
	token, expiresAt := h.guard.Issue()
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}
