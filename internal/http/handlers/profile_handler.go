package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lostfoundhub/lostfound-backend/internal/service"
	"github.com/lostfoundhub/lostfound-backend/internal/storage"
)

// ProfileHandler предоставляет HTTP слой для личного кабинета.
type ProfileHandler struct {
	auth           *service.AuthService
	storage        *storage.PhotoStorage
	maxAvatarBytes int64
}

// NewProfileHandler создаёт хэндлер.
func NewProfileHandler(auth *service.AuthService, photoStorage *storage.PhotoStorage, maxAvatarBytes int64) *ProfileHandler {
	return &ProfileHandler{
		auth:           auth,
		storage:        photoStorage,
		maxAvatarBytes: maxAvatarBytes,
	}
}

// Get обрабатывает GET /api/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Update обрабатывает PUT /api/profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Email    string  `json:"email" binding:"required"`
		Username string  `json:"username" binding:"required"`
		FullName *string `json:"full_name"`
		Phone    *string `json:"phone"`
		Location *string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, service.UpdateProfileInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadAvatar обрабатывает POST /api/profile/avatar.
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле avatar обязательно"})
		return
	}

	src, err := openValidatedImage(file)
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	relativePath, _, err := h.storage.Save(c.Request.Context(),
		storage.NamespaceAvatars, file.Filename, src, h.maxAvatarBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.auth.SetAvatar(c.Request.Context(), userID, relativePath); err != nil {
		_ = h.storage.Delete(c.Request.Context(), relativePath)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_path": relativePath})
}

// ChangePassword обрабатывает PUT /api/profile/password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "пароль успешно изменён"})
}

// Delete обрабатывает DELETE /api/profile.
func (h *ProfileHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
