package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/service"
)

// AdminHandler предоставляет административный HTTP слой:
// модерацию заявок и сводную статистику.
type AdminHandler struct {
	claims *service.ClaimService
	stats  *service.StatsService
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(claims *service.ClaimService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{claims: claims, stats: stats}
}

// ListClaims обрабатывает GET /api/admin/claims.
func (h *AdminHandler) ListClaims(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	claims, err := h.claims.List(c.Request.Context(), repository.ClaimListFilter{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, claims)
}

// GetClaim обрабатывает GET /api/admin/claims/:id.
func (h *AdminHandler) GetClaim(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	claim, err := h.claims.Get(c.Request.Context(), claimID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, claim)
}

// ApproveClaim обрабатывает POST /api/admin/claims/:id/approve.
// В ответе item_updated=false означает, что заявка одобрена,
// но объявление к этому моменту уже было удалено.
func (h *AdminHandler) ApproveClaim(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	result, err := h.claims.Approve(c.Request.Context(), principal, claimID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RejectClaim обрабатывает POST /api/admin/claims/:id/reject.
func (h *AdminHandler) RejectClaim(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	claim, err := h.claims.Reject(c.Request.Context(), principal, claimID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, claim)
}

// Stats обрабатывает GET /api/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Collect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
