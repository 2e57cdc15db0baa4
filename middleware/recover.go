package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/QuantumNous/image-studio/common"
	"github.com/gin-gonic/gin"
)

// PanicRecover 捕获 panic 并返回统一错误响应，堆栈只写入日志
func PanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError(c.Request.Context(), fmt.Sprintf("panic detected: %v", err))
				common.LogError(c.Request.Context(), fmt.Sprintf("stacktrace from panic: %s", string(debug.Stack())))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "internal server error",
				})
			}
		}()
		c.Next()
	}
}
