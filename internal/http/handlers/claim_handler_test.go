package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClaimHandler_File_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ClaimHandler{claims: nil}
	r.POST("/items/:id/claims", handler.File)

	itemID := uuid.New()
	req, _ := http.NewRequest("POST", "/items/"+itemID.String()+"/claims", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClaimHandler_File_InvalidItemID_WithAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", "user")
		c.Next()
	})
	handler := &ClaimHandler{claims: nil}
	r.POST("/items/:id/claims", handler.File)

	req, _ := http.NewRequest("POST", "/items/invalid-uuid/claims", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimHandler_MyClaims_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ClaimHandler{claims: nil}
	r.GET("/my-claims", handler.MyClaims)

	req, _ := http.NewRequest("GET", "/my-claims", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
