package router

import (
	"github.com/QuantumNous/image-studio/controller"
	"github.com/QuantumNous/image-studio/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Dependencies struct {
	ImageController *controller.ImageController
	Registry        *prometheus.Registry
	FrontendDir     string
}

func SetRouter(router *gin.Engine, deps Dependencies) {
	SetApiRouter(router, deps.ImageController)
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))
	}
	SetWebRouter(router, deps.FrontendDir)
}
