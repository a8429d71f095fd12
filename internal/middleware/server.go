package middleware

import (
	"log/slog"
	"time"

	"picserve/internal/logger"
	"picserve/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			slog.String("client_ip", c.ClientIP()),
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Duration("duration", time.Since(start)),
			slog.Int("size_bytes", c.Writer.Size()),
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http server error", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("http client error", fields...)
		default:
			logger.Debug("http request", fields...)
		}
	}
}

// DBMiddleware puts the database handle into the gin context. A *gorm.DB
// already present in the request context (a test transaction) wins over
// the pool.
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbKey := string(contextkeys.DBContextKey)
		if tx, ok := c.Request.Context().Value(contextkeys.DBContextKey).(*gorm.DB); ok && tx != nil {
			c.Set(dbKey, tx)
		} else {
			c.Set(dbKey, db)
		}
		c.Next()
	}
}
