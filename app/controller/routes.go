package controller

import (
	"github.com/vibast-solutions/ms-go-blog-auth/app/middleware"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, sessions *SessionController, users *UserController, auth *middleware.AuthMiddleware) {
	authGroup := e.Group("/auth")
	authGroup.POST("/register", sessions.Register)
	authGroup.POST("/login", sessions.Login)
	authGroup.POST("/google", sessions.GoogleSignIn)
	authGroup.GET("/refresh-token", sessions.RefreshToken)
	authGroup.POST("/logout", sessions.Logout)
	authGroup.POST("/send-otp", sessions.SendOTP)
	authGroup.POST("/resend-otp", sessions.ResendOTP)
	authGroup.POST("/verify-otp", sessions.VerifyOTP)
	authGroup.PUT("/reset-password", sessions.ResetPassword)

	userGroup := e.Group("/users", auth.RequireAuth)
	userGroup.GET("/me", users.Me)

	active := userGroup.Group("", auth.RequireActive)
	active.PUT("/me", users.UpdateMe)
	active.PUT("/me/password", users.ChangePassword)

	admin := active.Group("", auth.RequireAdmin)
	admin.GET("", users.List)
	admin.DELETE("", users.DeleteMany)
	admin.GET("/total", users.Total)
	admin.PUT("/:userId/status", users.UpdateStatus)
	admin.DELETE("/:userId", users.Delete)
}
