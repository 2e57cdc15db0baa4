package router

import (
	"github.com/QuantumNous/image-studio/controller"
	"github.com/gin-gonic/gin"
)

func SetApiRouter(router *gin.Engine, imageController *controller.ImageController) {
	apiRouter := router.Group("/api")
	{
		apiRouter.GET("/health", imageController.Health)
		apiRouter.POST("/generate-image", imageController.GenerateImage)
		apiRouter.GET("/test", controller.EchoTest)
		apiRouter.POST("/test", controller.EchoTest)

		userRoute := apiRouter.Group("/users")
		{
			userRoute.GET("", controller.ListUsers)
			userRoute.POST("", controller.CreateUser)
			userRoute.GET("/:id", controller.GetUser)
			userRoute.PUT("/:id", controller.UpdateUser)
			userRoute.DELETE("/:id", controller.DeleteUser)
		}
	}
}
