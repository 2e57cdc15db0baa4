package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/QuantumNous/image-studio/common"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// SetWebRouter 挂载前端静态资源，未命中的 GET 请求回退到 index.html
func SetWebRouter(router *gin.Engine, frontendDir string) {
	router.HandleMethodNotAllowed = true
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(static.Serve("/", static.LocalFile(frontendDir, false)))
	router.NoMethod(func(c *gin.Context) {
		common.ApiErrorMsg(c, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			common.ApiErrorMsg(c, http.StatusNotFound, "not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			common.ApiErrorMsg(c, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		index := filepath.Join(frontendDir, "index.html")
		if info, err := os.Stat(index); err != nil || info.IsDir() {
			c.String(http.StatusNotFound, "index.html not found")
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.File(index)
	})
}
