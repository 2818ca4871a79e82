package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lostfoundhub/lostfound-backend/internal/config"
	"github.com/lostfoundhub/lostfound-backend/internal/http/handlers"
	"github.com/lostfoundhub/lostfound-backend/internal/http/middleware"
	"github.com/lostfoundhub/lostfound-backend/internal/service"
)

// SetupRouter собирает маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	itemHandler *handlers.ItemHandler,
	claimHandler *handlers.ClaimHandler,
	profileHandler *handlers.ProfileHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.UploadStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
		protectedAuth.DELETE("/sessions", authHandler.DeleteAllSessionsExcept)
	}

	// Публичные маршруты: реестр доступен для чтения без авторизации.
	api.GET("/items", itemHandler.List)
	api.GET("/items/:id", middleware.UUIDValidator("id"), itemHandler.Get)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/items", itemHandler.Submit)
		protected.GET("/my-items", itemHandler.MyItems)
		protected.PUT("/items/:id/status", middleware.UUIDValidator("id"), itemHandler.SetStatus)
		protected.DELETE("/items/:id", middleware.UUIDValidator("id"), itemHandler.Delete)

		protected.POST("/items/:id/claims", middleware.UUIDValidator("id"), claimHandler.File)
		protected.GET("/my-claims", claimHandler.MyClaims)

		protected.GET("/profile", profileHandler.Get)
		protected.PUT("/profile", profileHandler.Update)
		protected.DELETE("/profile", profileHandler.Delete)
		protected.POST("/profile/avatar", profileHandler.UploadAvatar)
		protected.PUT("/profile/password", profileHandler.ChangePassword)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.GET("/claims", adminHandler.ListClaims)
		admin.GET("/claims/:id", middleware.UUIDValidator("id"), adminHandler.GetClaim)
		admin.POST("/claims/:id/approve", middleware.UUIDValidator("id"), adminHandler.ApproveClaim)
		admin.POST("/claims/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectClaim)
		admin.GET("/stats", adminHandler.Stats)
	}

	return r
}
