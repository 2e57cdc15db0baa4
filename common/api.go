package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func ApiSuccess(c *gin.Context, data any) {
	ApiSuccessWithStatus(c, http.StatusOK, data)
}

func ApiSuccessWithStatus(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "",
		"data":    data,
	})
}

func ApiErrorMsg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": msg,
	})
}

// ApiError 记录错误并返回通用 500，错误详情不返回给调用方
func ApiError(c *gin.Context, err error) {
	LogError(c.Request.Context(), err.Error())
	ApiErrorMsg(c, http.StatusInternalServerError, "internal server error")
}
