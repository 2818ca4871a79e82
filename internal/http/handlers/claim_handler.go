package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/service"
)

// ClaimHandler предоставляет HTTP слой для заявок на возврат.
type ClaimHandler struct {
	claims *service.ClaimService
}

// NewClaimHandler создаёт хэндлер.
func NewClaimHandler(claims *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// File обрабатывает POST /api/items/:id/claims.
func (h *ClaimHandler) File(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	var req struct {
		Details string `json:"details" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := h.claims.File(c.Request.Context(), userID, itemID, req.Details)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, claim)
}

// MyClaims обрабатывает GET /api/my-claims.
func (h *ClaimHandler) MyClaims(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.claims.MyClaims(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, claims)
}
