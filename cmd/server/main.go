package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/config"
	"github.com/lostfoundhub/lostfound-backend/internal/db"
	httpHandlers "github.com/lostfoundhub/lostfound-backend/internal/http/handlers"
	httpRouter "github.com/lostfoundhub/lostfound-backend/internal/http/router"
	"github.com/lostfoundhub/lostfound-backend/internal/logger"
	"github.com/lostfoundhub/lostfound-backend/internal/mailer"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/service"
	"github.com/lostfoundhub/lostfound-backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.UploadStoragePath)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	itemRepo := repository.NewItemRepository(dbConn)
	claimRepo := repository.NewClaimRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager, mail, cfg.PublicBaseURL, cfg.ResetTokenTTL)
	itemService := service.NewItemService(itemRepo, photoStorage)
	claimService := service.NewClaimService(claimRepo, itemRepo, dbConn)
	statsService := service.NewStatsService(userRepo, itemRepo, claimRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	itemHandler := httpHandlers.NewItemHandler(itemService, photoStorage, cfg.MaxItemImageMB*1024*1024)
	claimHandler := httpHandlers.NewClaimHandler(claimService)
	profileHandler := httpHandlers.NewProfileHandler(authService, photoStorage, cfg.MaxAvatarMB*1024*1024)
	adminHandler := httpHandlers.NewAdminHandler(claimService, statsService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, itemHandler, claimHandler, profileHandler, adminHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
