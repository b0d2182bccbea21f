package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/config"
	"github.com/quillhub/quillhub/controllers"
	"github.com/quillhub/quillhub/middleware"
	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/tasks"
	"github.com/quillhub/quillhub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, feed *services.Feed, queue *tasks.Client) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, queue)
	profileController := controllers.NewProfileController(db)
	postController := controllers.NewPostController(db, feed, queue)
	commentController := controllers.NewCommentController(db)
	rankingsController := controllers.NewRankingsController(feed)

	r.GET("/", middleware.OptionalAuth(), postController.List)

	accounts := r.Group("/accounts")
	accounts.Use(middleware.RateLimitMiddleware())
	accounts.POST("/register", middleware.OptionalAuth(), authController.Register)
	accounts.GET("/activate/:uid/:token", authController.Activate)
	accounts.POST("/login", middleware.OptionalAuth(), authController.Login)
	accounts.POST("/logout", middleware.AuthRequired(), authController.Logout)
	accounts.POST("/password_change", middleware.AuthRequired(), authController.PasswordChange)
	accounts.POST("/password_reset", authController.PasswordReset)
	accounts.POST("/password_reset/:uid/:token", authController.PasswordResetConfirm)
	accounts.GET("/profile", middleware.AuthRequired(), profileController.Show)
	accounts.POST("/profile", middleware.AuthRequired(), profileController.Update)

	post := r.Group("/post")
	post.Use(middleware.AuthRequired())
	post.POST("/new", postController.Create)
	post.GET("/:slug", postController.Detail)
	post.POST("/:slug/edit", postController.Edit)
	post.POST("/:slug/delete", postController.Delete)
	post.POST("/:slug/share", postController.Share)
	post.POST("/:slug/comment", commentController.Add)

	comment := r.Group("/comment")
	comment.Use(middleware.AuthRequired())
	comment.POST("/:id/edit", commentController.Edit)
	comment.POST("/:id/delete", commentController.Delete)

	rankings := r.Group("/rankings")
	rankings.GET("/most-viewed", rankingsController.MostViewed)
	rankings.GET("/most-commented", rankingsController.MostCommented)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
