package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/lostfoundhub/lostfound-backend/internal/http/middleware"
	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
)

var errUserNotFound = errors.New("пользователь не найден в контексте")

// Разрешённые типы изображений для загрузки.
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Разрешённые расширения изображений.
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// currentUserID извлекает userID из контекста.
func currentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, errUserNotFound
	}

	return userID, nil
}

// currentUserRole извлекает роль пользователя из контекста.
func currentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", errUserNotFound
	}

	role, ok := raw.(string)
	if !ok {
		return "", errUserNotFound
	}

	return role, nil
}

// currentPrincipal собирает субъект запроса из контекста.
func currentPrincipal(c *gin.Context) (models.Principal, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Principal{}, err
	}

	role, err := currentUserRole(c)
	if err != nil {
		return models.Principal{}, err
	}

	return models.Principal{UserID: userID, Role: role}, nil
}

// respondError транслирует ошибку сервиса в HTTP ответ.
// Неизвестные ошибки передаются центральному обработчику, который
// их логирует и маскирует.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	_ = c.Error(err)
}

// openValidatedImage проверяет загруженный файл по расширению и магическим
// байтам и возвращает reader, готовый к сохранению.
func openValidatedImage(file *multipart.FileHeader) (multipart.File, error) {
	if file.Size == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExtensions[ext] {
		return nil, apperror.Newf(apperror.ErrCodeValidation,
			"неподдерживаемый формат файла: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть загруженный файл: %w", err)
	}

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		src.Close()
		return nil, apperror.New(apperror.ErrCodeValidation, "не удалось прочитать файл")
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		src.Close()
		return nil, apperror.New(apperror.ErrCodeValidation,
			"не удалось определить тип файла, разрешены только изображения")
	}

	if !allowedImageMimeTypes[kind.MIME.Value] {
		src.Close()
		return nil, apperror.Newf(apperror.ErrCodeValidation,
			"неподдерживаемый тип файла (%s), разрешены только изображения", kind.MIME.Value)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		src.Close()
		return nil, fmt.Errorf("не удалось сбросить позицию файла: %w", err)
	}

	return src, nil
}

// respondCreated отправляет 201 с телом.
func respondCreated(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}
