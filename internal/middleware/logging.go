// internal/middleware/logging.go
package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request once it completes. Client info is read
// from c.Request after c.Next(), so the owner set by ContextExtractor is
// visible even though the logger is registered before it.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		clientInfo := GetClientInfoFromContext(c.Request.Context())

		logLevel := "INFO"
		if status >= 500 || len(c.Errors) > 0 {
			logLevel = "ERROR"
		}
		log.Printf("[%s] %s %s %d completed in %v (owner: %s, ip: %s)",
			logLevel, method, path, status, duration, clientInfo.OwnerID, clientInfo.IPAddress)
		for _, err := range c.Errors {
			log.Printf("[ERROR] %s %s error: %v", method, path, err.Err)
		}
	}
}
