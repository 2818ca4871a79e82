package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestItemHandler_Submit_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ItemHandler{items: nil}
	r.POST("/items", handler.Submit)

	req, _ := http.NewRequest("POST", "/items", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestItemHandler_Get_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ItemHandler{items: nil}
	r.GET("/items/:id", handler.Get)

	req, _ := http.NewRequest("GET", "/items/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandler_SetStatus_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ItemHandler{items: nil}
	r.PUT("/items/:id/status", handler.SetStatus)

	itemID := uuid.New()
	req, _ := http.NewRequest("PUT", "/items/"+itemID.String()+"/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestItemHandler_Delete_InvalidID_WithAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", "user")
		c.Next()
	})
	handler := &ItemHandler{items: nil}
	r.DELETE("/items/:id", handler.Delete)

	req, _ := http.NewRequest("DELETE", "/items/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
