package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter 注册同步触发接口
func NewRouter(h *IngestHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	Register(r, h)
	return r
}

// Register 把路由挂到已有的 gin 引擎上
func Register(r gin.IRouter, h *IngestHandler) {
	r.GET("/healthz", Health)

	ingest := r.Group("/ingest")
	ingest.POST("/games", h.IngestGames)
	ingest.POST("/snapshots", h.PollSnapshots)
	ingest.POST("/snapshots/:method", h.PollSnapshot)

	r.POST("/detect", h.Detect)
}

// requestLogger 用 logrus 输出访问日志
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("HTTP 请求")
	}
}
