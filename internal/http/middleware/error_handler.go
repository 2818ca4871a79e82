package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lostfoundhub/lostfound-backend/internal/logger"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки доменного типа транслируются в статус и код из таксономии,
// всё остальное маскируется как внутренняя ошибка сервера.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
			return
		}

		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "пользователь не найден", "code": apperror.ErrCodeNotFound})
		case errors.Is(err, repository.ErrItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "предмет не найден", "code": apperror.ErrCodeNotFound})
		case errors.Is(err, repository.ErrClaimNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "заявка не найдена", "code": apperror.ErrCodeNotFound})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "внутренняя ошибка сервера",
				"code":  apperror.ErrCodeInternal,
			})
		}
	}
}
