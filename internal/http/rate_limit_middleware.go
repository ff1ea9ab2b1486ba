package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nestor/internal/service"
)

// RateLimitMiddleware limita por scope e IP del cliente. limiter nil deja pasar todo.
func RateLimitMiddleware(limiter service.RequestLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(rateKey(c, scope)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": service.ErrRateLimited.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// clientKey identifica al cliente: sujeto del token si existe, si no la IP.
func clientKey(c *gin.Context) string {
	if claims, ok := GetAuthClaims(c); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return c.ClientIP()
}

// rateKey es la clave compartida por HTTP y WebSocket para un mismo scope.
func rateKey(c *gin.Context, scope string) string {
	return scope + ":" + clientKey(c)
}
