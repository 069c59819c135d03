package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/skyposts/skyposts/config"
	"github.com/skyposts/skyposts/controllers"
	"github.com/skyposts/skyposts/middleware"
	"github.com/skyposts/skyposts/storage"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/utils"
)

// Deps carries the process-wide collaborators. Store clients are
// constructed once at boot and injected here; handlers never reach for
// ambient globals.
type Deps struct {
	Config   config.AppConfig
	Users    *store.Users
	Posts    *store.Posts
	Comments *store.Comments
	Objects  storage.Signer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	switch strings.ToLower(d.Config.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Replace default console logger with the zap access logger; the
	// recovery middleware keeps panics inside the handler boundary.
	gl, err := utils.NewRollingFileLogger(d.Config.GinLogPath, d.Config.LogLevel, d.Config.LogMaxSizeMB, d.Config.LogMaxBackups, d.Config.LogMaxAgeDays, d.Config.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(d.Config.AllowedOrigins) == 1 && d.Config.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.Config.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.Users, d.Objects, d.Config.JWTSecret)
	postController := controllers.NewPostController(d.Posts, d.Objects)
	commentController := controllers.NewCommentController(d.Comments, d.Users)

	authed := middleware.AuthRequired(d.Config.JWTSecret)

	auth := r.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.GET("/me", authed, authController.Me)
	auth.PUT("/me", authed, authController.UpdateMe)
	auth.GET("/profile/upload-url", authed, authController.ProfileUploadURL)

	posts := r.Group("/posts")
	posts.GET("", postController.ListPosts)
	posts.GET("/:id", postController.GetPost)
	posts.GET("/me", authed, postController.ListMyPosts)
	posts.POST("", authed, postController.CreatePost)
	posts.POST("/upload-url", authed, postController.UploadURL)

	comments := r.Group("/comments")
	comments.GET("", commentController.ListComments)
	comments.GET("/post/:postId", commentController.ListByPost)
	comments.GET("/user", authed, commentController.ListMine)
	comments.POST("", authed, commentController.CreateComment)
	comments.PUT("", authed, commentController.UpdateComment)
	comments.DELETE("", authed, commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
