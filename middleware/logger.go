package middleware

import (
	"fmt"
	"time"

	"github.com/QuantumNous/image-studio/common"
	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个请求的方法、路径、状态码与耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		common.LogInfo(c.Request.Context(), fmt.Sprintf("%s %s | %d | %v | %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		))
	}
}
