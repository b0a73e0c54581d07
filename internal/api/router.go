package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nivaas/property-system/internal/api/handler"
	"github.com/nivaas/property-system/internal/api/middleware"
	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
	"github.com/nivaas/property-system/internal/core/service"
)

// Dependencies carries everything the router needs; services are wired in
// cmd/api.
type Dependencies struct {
	JWTSecret   string
	Users       ports.UserRepository
	AuthService ports.AuthService
	Permissions ports.PermissionService
	Tokens      ports.TokenService
	Hierarchy   ports.HierarchyService
	Cache       ports.PermissionCache
	Decider     *service.AccessDecider
	Mongo       *mongo.Database
	Redis       *redis.Client
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("property"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Permissions)
	tokenHandler := handler.NewTokenHandler(deps.Tokens)
	permHandler := handler.NewStaffPermissionHandler(deps.Permissions)
	userHandler := handler.NewUserHandler(deps.AuthService, deps.Hierarchy, deps.Users, deps.Permissions)
	impHandler := handler.NewImpersonationHandler(deps.AuthService)
	cacheHandler := handler.NewCacheHandler(deps.Cache, deps.Permissions)

	authMW := middleware.Auth(deps.JWTSecret, deps.Users)
	adminOnly := middleware.Access(deps.Decider, service.Requirement{
		Roles: []string{domain.RoleWebOwner, domain.RoleDeveloper},
	})
	canManageUsers := middleware.Access(deps.Decider, service.Requirement{
		Roles: []string{domain.RoleWebOwner, domain.RoleDeveloper, domain.RoleStaff, domain.RoleHouseOwner},
	})

	// --- Public auth surface ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/password", authHandler.SetPassword, authMW)
	auth.GET("/me", authHandler.Me, authMW)

	// --- Registration tokens ---
	tokens := e.Group("/api/tokens")
	tokens.POST("/validate", tokenHandler.Validate) // pre-signup, unauthenticated
	tokens.POST("", tokenHandler.Generate, authMW, canManageUsers)
	tokens.GET("", tokenHandler.List, authMW, canManageUsers)
	tokens.DELETE("/:id", tokenHandler.Revoke, authMW, canManageUsers)

	// --- Users ---
	users := e.Group("/api/users", authMW)
	users.POST("", userHandler.Create, canManageUsers)
	users.PATCH("/:id/limits", userHandler.UpdateLimits, adminOnly)
	users.GET("/managed", userHandler.Managed)
	users.GET("/:id", userHandler.Detail, adminOnly)

	// --- Permissions: self-service ---
	perms := e.Group("/api/permissions", authMW)
	perms.GET("/me", permHandler.MyPermissions)
	perms.GET("/check", permHandler.Check)
	perms.GET("/catalog", permHandler.Catalog)

	// --- Permissions: staff grant administration ---
	staff := e.Group("/api/staff-permissions", authMW, adminOnly)
	staff.GET("", permHandler.StaffList)
	staff.POST("/:userId", permHandler.Grant)
	staff.DELETE("/:userId/:permissionId", permHandler.Revoke)
	staff.POST("/:userId/bulk", permHandler.BulkGrant)
	staff.DELETE("/:userId/bulk", permHandler.BulkRevoke)
	staff.POST("/:userId/copy", permHandler.Copy)
	staff.GET("/:userId/history", permHandler.History)

	// --- Impersonation ---
	imp := e.Group("/api/login-as", authMW)
	imp.POST("", impHandler.Start)
	imp.POST("/exit", impHandler.Exit)

	// --- Cache administration ---
	cacheGroup := e.Group("/api/cache", authMW, adminOnly)
	cacheGroup.GET("/stats", cacheHandler.Stats)
	cacheGroup.DELETE("", cacheHandler.InvalidateAll)
	cacheGroup.DELETE("/users/:userId", cacheHandler.InvalidateUser)
	cacheGroup.DELETE("/roles/:roleId", cacheHandler.InvalidateRole)
	cacheGroup.POST("/warmup", cacheHandler.WarmUp)

	// --- Observability (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
