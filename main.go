package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/QuantumNous/image-studio/common"
	"github.com/QuantumNous/image-studio/controller"
	"github.com/QuantumNous/image-studio/metrics"
	"github.com/QuantumNous/image-studio/middleware"
	"github.com/QuantumNous/image-studio/model"
	"github.com/QuantumNous/image-studio/router"
	"github.com/QuantumNous/image-studio/service"
	"github.com/QuantumNous/image-studio/setting"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		common.SysLog("no .env file loaded, using process environment")
	}
	common.InitEnv()

	if os.Getenv("GIN_MODE") != "debug" && !common.DebugEnabled {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := model.InitDB(); err != nil {
		common.SysError("failed to initialize database: " + err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := model.CloseDB(); err != nil {
			common.SysError("failed to close database: " + err.Error())
		}
	}()

	service.InitHttpClient()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewImageRecorder(registry)
	if err != nil {
		common.SysError("failed to register metrics: " + err.Error())
		os.Exit(1)
	}

	imageConfig := setting.LoadImageConfig()
	if !imageConfig.CredentialConfigured() {
		common.SysLog("HUGGING_FACE_TOKEN is not set, image generation requests will fail until it is configured")
	}
	imageService := service.NewImageGenerationService(imageConfig, service.NewHTTPInferenceClient(service.GetHttpClient()), recorder)

	server := gin.New()
	server.Use(middleware.RequestId())
	server.Use(middleware.PanicRecover())
	server.Use(middleware.RequestLogger())
	server.Use(middleware.CORS())

	router.SetRouter(server, router.Dependencies{
		ImageController: controller.NewImageController(imageService),
		Registry:        registry,
		FrontendDir:     common.FrontendDir,
	})

	if common.DebugEnabled {
		for _, route := range server.Routes() {
			common.SysLog(fmt.Sprintf("route %s %s", route.Method, route.Path))
		}
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(common.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		common.SysLog(fmt.Sprintf("%s %s started on port %d", imageConfig.ServiceName, common.Version, common.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		common.SysLog("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		common.SysError("server stopped with error: " + err.Error())
	}
}
