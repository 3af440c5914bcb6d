package server

import (
	"time"

	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/config"
	"github.com/Baaaki/yamdb/internal/handler"
	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/notify"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/Baaaki/yamdb/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is everything the router needs from the outside world.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Limiter  middleware.Limiter
	Notifier notify.Notifier
	Recorder audit.Recorder
}

// NewRouter wires repositories, services and handlers and mounts the API under /api/v1.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	handler.RegisterValidators()

	recorder := deps.Recorder
	if recorder == nil {
		recorder = audit.Nop{}
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(deps.DB)
	genreRepo := repository.NewGenreRepository(deps.DB)
	categoryRepo := repository.NewCategoryRepository(deps.DB)
	titleRepo := repository.NewTitleRepository(deps.DB)
	reviewRepo := repository.NewReviewRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)

	// Services
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTRefreshExpiry)
	codes := utils.NewCodeGenerator(cfg.JWTSecret, cfg.ConfirmationCodeTTL)
	authService := service.NewAuthService(accountRepo, codes, tokens, deps.Notifier)
	accountService := service.NewAccountService(accountRepo, recorder)
	catalogService := service.NewCatalogService(genreRepo, categoryRepo, titleRepo, recorder)
	reviewService := service.NewReviewService(titleRepo, reviewRepo, commentRepo, recorder)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(accountService, cfg.PageSize)
	catalogHandler := handler.NewCatalogHandler(catalogService, cfg.PageSize)
	reviewHandler := handler.NewReviewHandler(reviewService, cfg.PageSize)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(handler.MethodNotAllowed)
	router.NoRoute(handler.NotFound)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HSTS(cfg.IsProduction()))

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(tokens, accountRepo))

	auth := api.Group("/auth")
	if deps.Limiter != nil {
		auth.Use(middleware.RateLimit(deps.Limiter))
	}
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/token", authHandler.Token)
		auth.POST("/token/refresh", authHandler.Refresh)
	}

	users := api.Group("/users", middleware.RequireAuth())
	{
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateMe)
		users.DELETE("/me", handler.MethodNotAllowed)

		admin := users.Group("", middleware.RequireAdmin())
		admin.GET("", userHandler.List)
		admin.POST("", userHandler.Create)
		admin.GET("/:username", userHandler.Get)
		admin.PATCH("/:username", userHandler.Update)
		admin.DELETE("/:username", userHandler.Delete)
	}

	catalog := api.Group("", middleware.AdminOrReadOnly())
	{
		catalog.GET("/genres", catalogHandler.ListGenres)
		catalog.POST("/genres", catalogHandler.CreateGenre)
		catalog.DELETE("/genres/:slug", catalogHandler.DeleteGenre)

		catalog.GET("/categories", catalogHandler.ListCategories)
		catalog.POST("/categories", catalogHandler.CreateCategory)
		catalog.DELETE("/categories/:slug", catalogHandler.DeleteCategory)

		catalog.GET("/titles", catalogHandler.ListTitles)
		catalog.POST("/titles", catalogHandler.CreateTitle)
		catalog.GET("/titles/:title_id", catalogHandler.GetTitle)
		catalog.PATCH("/titles/:title_id", catalogHandler.UpdateTitle)
		catalog.DELETE("/titles/:title_id", catalogHandler.DeleteTitle)
	}

	// Object-level checks happen in the review service.
	reviews := api.Group("/titles/:title_id/reviews", middleware.AuthenticatedOrReadOnly())
	{
		reviews.GET("", reviewHandler.ListReviews)
		reviews.POST("", reviewHandler.CreateReview)
		reviews.GET("/:review_id", reviewHandler.GetReview)
		reviews.PATCH("/:review_id", reviewHandler.UpdateReview)
		reviews.DELETE("/:review_id", reviewHandler.DeleteReview)

		reviews.GET("/:review_id/comments", reviewHandler.ListComments)
		reviews.POST("/:review_id/comments", reviewHandler.CreateComment)
		reviews.GET("/:review_id/comments/:comment_id", reviewHandler.GetComment)
		reviews.PATCH("/:review_id/comments/:comment_id", reviewHandler.UpdateComment)
		reviews.DELETE("/:review_id/comments/:comment_id", reviewHandler.DeleteComment)
	}

	return router
}
