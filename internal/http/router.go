package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nestor/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas del avatar.
// /health y /emotions son públicas; el resto exige token si hay secreto JWT.
func NewRouter(
	logger *zap.Logger,
	avatarH *AvatarHandler,
	jwtSvc *service.JWTService,
	limiter service.RequestLimiter,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/health", avatarH.Health)
	r.GET("/emotions", avatarH.Emotions)

	control := r.Group("", JWTAuthMiddleware(jwtSvc))
	control.GET("/state", avatarH.State)
	control.POST("/trigger", avatarH.Trigger)
	control.POST("/route", avatarH.Route)
	control.POST("/say", RateLimitMiddleware(limiter, "say"), avatarH.Say)
	control.POST("/chat", RateLimitMiddleware(limiter, "chat"), avatarH.Chat)

	return r
}

// NewWSRouter sirve el endpoint WebSocket en su propio servidor.
func NewWSRouter(logger *zap.Logger, wsH *WSHandler, jwtSvc *service.JWTService) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())
	r.GET("/ws", JWTAuthMiddleware(jwtSvc), wsH.Handle)
	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
