package controller

import (
	"io"
	"net/http"

	"github.com/QuantumNous/image-studio/dto"
	"github.com/QuantumNous/image-studio/service"
	"github.com/gin-gonic/gin"
)

// ImageController 图像生成接口
type ImageController struct {
	service *service.ImageGenerationService
}

func NewImageController(imageService *service.ImageGenerationService) *ImageController {
	return &ImageController{service: imageService}
}

// GenerateImage 根据提示词生成图片，结果总是统一的 JSON 信封
func (ic *ImageController) GenerateImage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, service.MaxRequestBodySize+1))
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, dto.NewErrorResult("Request body could not be read.", nil))
		return
	}

	result, status := ic.service.Handle(c.Request.Context(), c.GetHeader("Content-Type"), body)
	c.JSON(status, result)
}

// Health 健康检查，不访问上游
func (ic *ImageController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, ic.service.Health())
}
