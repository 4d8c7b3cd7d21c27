package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/identity"
	"github.com/justaplayground/devnet/internal/service"
	"github.com/justaplayground/devnet/internal/transport/http/handlers"
)

type Router = *gin.Engine

func NewRouter(cfg *config.Config, svc *service.Services) Router {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	api := r.Group("/")
	api.Use(resolveCaller(identity.NewJWTProvider(cfg.JWTSecret), svc.Gate))

	posts := handlers.NewPostHandler(svc.Posts, svc.Engagement)
	engagement := handlers.NewEngagementHandler(svc.Engagement)
	tags := handlers.NewTagHandler(svc.Tags)
	admin := handlers.NewAdminHandler(svc.Admin)

	api.GET("/posts", posts.Feed)
	api.GET("/posts/:slug", posts.GetPost)
	api.GET("/posts/:slug/comments", posts.ListComments)
	api.GET("/posts/:slug/engagement", posts.EngagementState)
	api.POST("/posts", posts.CreatePost)
	api.PUT("/posts/:id", posts.UpdatePost)
	api.PATCH("/posts/:id/status", posts.ChangeStatus)
	api.DELETE("/posts/:id", posts.DeletePost)

	api.POST("/posts/:id/like", engagement.ToggleLike)
	api.POST("/posts/:id/bookmark", engagement.ToggleBookmark)
	api.POST("/posts/:id/view", engagement.RecordView)
	api.POST("/posts/:id/comments", engagement.AddComment)

	api.GET("/tags", tags.Popular)

	api.GET("/admin/stats", admin.Stats)
	api.GET("/admin/users", admin.Users)
	api.GET("/admin/posts", admin.Posts)
	api.GET("/admin/activity", admin.Activity)
	api.POST("/admin/users/:id/roles/:role/toggle", admin.ToggleRole)

	return r
}
