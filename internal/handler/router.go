package handler

import (
	"github.com/acainfo/backend/internal/model"
	"github.com/acainfo/backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(authService *service.AuthService, allowedOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), CORSMiddleware(allowedOrigins, false))

	router.GET("/", Root)
	router.GET("/ping", Ping)
	router.GET("/openapi.json", OpenAPIDoc)

	auth := NewAuthHandler(authService)
	authRequired := AuthMiddleware(authService)

	api := router.Group("/api/auth")
	{
		api.POST("/login", auth.Login)
		api.POST("/register/student", auth.RegisterStudent)
		api.POST("/register/teacher", authRequired, RequireRole(model.RoleAdmin), auth.RegisterTeacher)
		api.POST("/refresh", auth.Refresh)
		api.POST("/logout", auth.Logout)
		api.GET("/validate", auth.Validate)
		api.GET("/me", authRequired, auth.Me)
		api.GET("/health", auth.Health)
	}

	return router
}
