package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/service"
	"github.com/lostfoundhub/lostfound-backend/internal/storage"
)

// ItemHandler предоставляет HTTP слой для работы с объявлениями.
type ItemHandler struct {
	items         *service.ItemService
	storage       *storage.PhotoStorage
	maxImageBytes int64
}

// NewItemHandler создаёт хэндлер.
func NewItemHandler(items *service.ItemService, photoStorage *storage.PhotoStorage, maxImageBytes int64) *ItemHandler {
	return &ItemHandler{
		items:         items,
		storage:       photoStorage,
		maxImageBytes: maxImageBytes,
	}
}

// List обрабатывает GET /api/items.
func (h *ItemHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.items.List(c.Request.Context(), repository.ItemListFilter{
		Search:   c.Query("search"),
		Kind:     c.Query("kind"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get обрабатывает GET /api/items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	item, err := h.items.GetByID(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Submit обрабатывает POST /api/items (multipart/form-data).
// Администратор публикует запись без привязки к своей учётной записи.
func (h *ItemHandler) Submit(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	in := service.SubmitItemInput{
		Kind:         c.PostForm("kind"),
		Name:         c.PostForm("name"),
		Category:     c.PostForm("category"),
		Description:  c.PostForm("description"),
		Location:     c.PostForm("location"),
		DateReported: c.PostForm("date_reported"),
		ContactEmail: c.PostForm("contact_email"),
		ContactPhone: c.PostForm("contact_phone"),
	}

	if file, err := c.FormFile("image"); err == nil {
		src, err := openValidatedImage(file)
		if err != nil {
			respondError(c, err)
			return
		}
		defer src.Close()

		relativePath, _, err := h.storage.Save(c.Request.Context(),
			storage.NamespaceItems, file.Filename, src, h.maxImageBytes)
		if err != nil {
			respondError(c, err)
			return
		}
		in.ImagePath = &relativePath
	}

	submitter := &principal.UserID
	if principal.IsAdmin() {
		submitter = nil
	}

	item, err := h.items.Submit(c.Request.Context(), submitter, in)
	if err != nil {
		// Запись не создана, сохранённый файл больше не нужен.
		if in.ImagePath != nil {
			_ = h.storage.Delete(c.Request.Context(), *in.ImagePath)
		}
		respondError(c, err)
		return
	}

	respondCreated(c, item)
}

// MyItems обрабатывает GET /api/my-items.
func (h *ItemHandler) MyItems(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	items, err := h.items.MyItems(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// SetStatus обрабатывает PUT /api/items/:id/status.
func (h *ItemHandler) SetStatus(c *gin.Context) {
	principal, err := currentPrincipal(c)
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
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.items.SetStatus(c.Request.Context(), principal, itemID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Delete обрабатывает DELETE /api/items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	principal, err := currentPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный идентификатор"})
		return
	}

	if err := h.items.Delete(c.Request.Context(), principal, itemID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
