package middleware

import (
	"context"

	"github.com/QuantumNous/image-studio/common"
	"github.com/QuantumNous/image-studio/constant"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set(common.RequestIdKey, id)
		ctx := context.WithValue(c.Request.Context(), constant.ContextKeyRequestId, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(common.RequestIdKey, id)
		c.Next()
	}
}
