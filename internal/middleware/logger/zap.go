package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewLogger returns a JSON production logger for "prod" or "production" and
// a development logger for anything else.
func NewLogger(mode string) (*zap.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}

// Gin logs every request and turns a handler panic into a 500.
func Gin(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Handler panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal server error",
				})
			}
			record(log, c, start)
		}()
		c.Next()
	}
}

func record(log *zap.Logger, c *gin.Context, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	status := c.Writer.Status()
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("took", time.Since(start)),
	}
	switch {
	case status >= 500:
		log.Error("HTTP request", fields...)
	case status >= 400:
		log.Warn("HTTP request", fields...)
	default:
		log.Debug("HTTP request", fields...)
	}
}
