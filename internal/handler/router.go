package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ganttshare/internal/middleware"
)

type RouterDeps struct {
	Shares          *ShareHandler
	JWTSecret       []byte
	PublicRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/projects/:project_id/share-links", deps.Shares.Issue)
	authGroup.GET("/projects/:project_id/share-links", deps.Shares.List)
	authGroup.DELETE("/projects/:project_id/share-links/:token", deps.Shares.Revoke)

	public := api.Group("/public/share/gantt")
	public.Use(middleware.RateLimit(deps.PublicRateLimit))
	public.GET("/:token", deps.Shares.PublicResolve)
	public.POST("/:token/download", deps.Shares.PublicDownload)
}
