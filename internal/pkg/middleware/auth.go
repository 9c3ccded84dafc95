package middleware

import (
	"net/http"
	"strings"

	"feed_gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

const tokenKey = "platformToken"

// AuthMiddleware 提取调用方的平台 Bearer Token
// Token 对引擎不透明：签发与校验都在平台侧，这里只负责透传，
// 平台拒绝时错误会按统一信封返回给调用方
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrSessionRequired, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		c.Set(tokenKey, parts[1])
		c.Next()
	}
}

// GetToken 从上下文取出平台 Token
func GetToken(c *gin.Context) string {
	val, _ := c.Get(tokenKey)
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
