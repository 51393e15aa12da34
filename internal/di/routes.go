package di

import (
	"github.com/gin-gonic/gin"

	"github.com/Balorum/PhotoShare/internal/middleware"
)

// RegisterRoutes mounts the health checks and the /api routes on r
func (c *Container) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.HealthHandler.Health)
	r.GET("/ready", c.HealthHandler.Ready)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", c.AuthHandler.Signup)
		auth.POST("/login", c.AuthHandler.Login)
		auth.POST("/logout", middleware.RequireRoles(c.ReadGate), c.AuthHandler.Logout)
		auth.GET("/refresh_token", c.AuthHandler.RefreshToken)
		auth.GET("/confirmed_email/:token", c.AuthHandler.ConfirmEmail)
		auth.POST("/request_email", c.AuthHandler.RequestEmail)
	}

	users := api.Group("/users")
	{
		users.GET("/me", middleware.RequireRoles(c.ReadGate), c.UserHandler.Me)

		admin := users.Group("", middleware.RequireRoles(c.AdminGate))
		admin.PATCH("/change_role", c.UserHandler.ChangeRole)
		admin.PATCH("/ban", c.UserHandler.Ban)
		admin.PATCH("/remove_from_ban", c.UserHandler.RemoveFromBan)
		admin.DELETE("/delete/:user_id", c.UserHandler.Delete)
	}
}
