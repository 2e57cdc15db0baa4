package controller

import (
	"io"
	"net/http"

	"github.com/QuantumNous/image-studio/common"
	"github.com/gin-gonic/gin"
)

// EchoTest 返回请求方法，POST 时回显 JSON 请求体（无法解析时为 null）
func EchoTest(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusOK, gin.H{"ok": true, "method": c.Request.Method})
		return
	}

	var received any
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err == nil && len(body) > 0 {
		if err := common.Unmarshal(body, &received); err != nil {
			received = nil
		}
	}
	common.LogDebug(c.Request.Context(), "api/test POST received %d bytes", len(body))
	c.JSON(http.StatusOK, gin.H{"ok": true, "method": http.MethodPost, "received": received})
}
