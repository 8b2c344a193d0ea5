// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/servicedeskai/helpdesk/internal/config"
	"github.com/servicedeskai/helpdesk/internal/handler"
	"github.com/servicedeskai/helpdesk/internal/middleware"
	"github.com/servicedeskai/helpdesk/internal/model"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Tickets   *handler.TicketHandler
	Admin     *handler.AdminHandler
	Dashboard *handler.DashboardHandler
	Uploads   *handler.UploadHandler
	AI        *handler.AIHandler
}

// Register mounts all routes on the Echo instance. The rdb client may be
// nil, in which case rate limiting and response caching are transparently
// disabled (the middleware constructors degrade to passthrough).
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Uploaded media is served statically; URLs returned by the upload
	// endpoints resolve here.
	e.Static("/uploads", cfg.UploadDir)

	// Credential endpoints do not require a session. They are the obvious
	// brute-force target, so the token bucket sits in front of them.
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	auth := e.Group("/v1/auth", rl)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Everything below requires a valid access token.
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	api.GET("/auth/me", h.Auth.Me)

	// Tickets: everyone authenticated can create and read; triage actions
	// are gated to the service desk, deletion to admins.
	api.POST("/tickets", h.Tickets.Create)
	api.GET("/tickets", h.Tickets.List)
	api.GET("/tickets/:id", h.Tickets.Get)

	desk := middleware.RequireRole(model.RoleServiceDesk, model.RoleAdmin)
	api.PATCH("/tickets/:id/status", h.Tickets.UpdateStatus, desk)
	api.PATCH("/tickets/:id/assign", h.Tickets.Assign, desk)
	api.PATCH("/tickets/:id/close", h.Tickets.Close, desk)
	api.DELETE("/tickets/:id", h.Tickets.Delete, middleware.RequireRole(model.RoleAdmin))

	// Dashboard aggregates, cached briefly in Redis.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	dash := api.Group("/dashboard", desk, cache)
	dash.GET("/stats", h.Dashboard.Stats)
	dash.GET("/recent", h.Dashboard.Recent)

	// Uploads and on-demand analysis.
	api.POST("/uploads/single", h.Uploads.Single)
	api.POST("/uploads/multiple", h.Uploads.Multiple)
	api.POST("/ai/analyze", h.AI.Analyze)

	// Admin-only user management.
	admin := api.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.PATCH("/users/:id/role", h.Admin.UpdateRole)
}
