// Package server 提供 StoryStudio 的 HTTP 接口
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ByLCY/storystudio/story"
)

// Options 配置路由器
type Options struct {
	Service     *story.Service
	Exporter    story.Exporter
	CORSOrigins []string
	// Release 为 true 时关闭 gin 的调试输出
	Release bool
}

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	handler *Handler
	opts    Options
}

// New 创建新的路由器
func New(opts Options) *Router {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:  gin.New(),
		handler: NewHandler(opts.Service, opts.Exporter),
		opts:    opts,
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(Recovery())
	r.engine.Use(RequestID())
	r.engine.Use(CORS(r.opts.CORSOrigins))
	r.engine.Use(AccessLog())
	r.engine.Use(Metrics())
}

func (r *Router) setupRoutes() {
	r.engine.GET("/healthcheck", Healthcheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.engine.POST("/generate-story", r.handler.GenerateStory)
	r.engine.POST("/export-pdf", r.handler.ExportPDF)

	scene := r.engine.Group("/scene")
	{
		scene.POST("/generate-story", r.handler.GenerateStory)
	}

	st := r.engine.Group("/story")
	{
		st.POST("/generate", r.handler.GenerateText)
		st.POST("/export-pdf", r.handler.ExportPDF)
	}

	api := r.engine.Group("/api")
	{
		api.POST("/generate_image", r.handler.GenerateImage)
	}
}
