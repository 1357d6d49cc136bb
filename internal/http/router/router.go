package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/cms-backend/internal/config"
	"github.com/ignatzorin/cms-backend/internal/http/handlers"
	"github.com/ignatzorin/cms-backend/internal/http/middleware"
	"github.com/ignatzorin/cms-backend/internal/service"
)

// SetupRouter собирает роутер со всеми маршрутами и middleware.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	postHandler *handlers.PostHandler,
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

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/users/me", userHandler.Me)

		protected.GET("/posts", postHandler.List)
		protected.GET("/posts/:id", middleware.UUIDValidator("id"), postHandler.GetByID)
		protected.GET("/posts/:id/photo", middleware.UUIDValidator("id"), postHandler.GetPhoto)
		protected.DELETE("/posts/:id", middleware.UUIDValidator("id"), postHandler.Delete)
		protected.POST("/posts/save", postHandler.Save)

		// Генерация ходит во внешний API, у неё свой, более жёсткий лимит
		generate := protected.Group("/posts")
		generate.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
		{
			generate.POST("/generate", postHandler.Generate)
			generate.POST("/generate-and-save", postHandler.GenerateAndSave)
		}
	}

	return r
}
