package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cms-backend/internal/ai"
	"github.com/ignatzorin/cms-backend/internal/config"
	"github.com/ignatzorin/cms-backend/internal/db"
	"github.com/ignatzorin/cms-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/cms-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/cms-backend/internal/http/router"
	"github.com/ignatzorin/cms-backend/internal/logger"
	"github.com/ignatzorin/cms-backend/internal/repository"
	"github.com/ignatzorin/cms-backend/internal/service"
	"github.com/ignatzorin/cms-backend/internal/storage"
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
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
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

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.UploadDir, cfg.TempUploadDir)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Фоновая чистка временных фотографий, которые так и не были сохранены.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		sweepTempPhotos(ctx, photoStorage, cfg.TempPhotoTTL)
	})

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	postRepo := repository.NewPostRepository(dbConn)

	// Клиент генерации описаний.
	aiClient := ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)

	// Сервисы.
	authService := service.NewAuthService(userRepo, postRepo, tokenManager)
	postService := service.NewPostService(postRepo, userRepo, aiClient, photoStorage)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	userHandler := httpHandlers.NewUserHandler(authService)
	postHandler := httpHandlers.NewPostHandler(postService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, userHandler, postHandler, healthHandler, tokenManager)

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

// sweepTempPhotos периодически удаляет просроченные временные фотографии.
func sweepTempPhotos(ctx context.Context, photoStorage *storage.PhotoStorage, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := photoStorage.SweepTemp(ttl)
			if err != nil {
				if logger.Log != nil {
					logger.Log.WithError(err).Warn("main: чистка временных фотографий завершилась с ошибкой")
				}
				continue
			}
			if removed > 0 && logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{"removed": removed}).Info("main: удалены просроченные временные фотографии")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
