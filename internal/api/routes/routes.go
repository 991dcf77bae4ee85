package routes

import (
	"famli/internal/api/handlers"
	"famli/internal/api/middleware"
	"famli/internal/config"
	"famli/internal/events"
	"famli/internal/logging"
	"famli/internal/models"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AccessPolicy lists every route restricted to specific roles. Routes not
// listed here are open to any authenticated user.
var AccessPolicy = middleware.Policy{
	"GET /api/users":           middleware.Roles(models.RoleAdmin),
	"POST /api/users":          middleware.Roles(models.RoleAdmin),
	"PUT /api/users/:id":       middleware.Roles(models.RoleAdmin),
	"DELETE /api/users/:id":    middleware.Roles(models.RoleAdmin),
	"GET /api/users/audit/log": middleware.Roles(models.RoleAdmin),

	"POST /api/households":       middleware.Roles(models.RoleAdmin, models.RoleEditor),
	"PUT /api/households/:id":    middleware.Roles(models.RoleAdmin, models.RoleEditor),
	"DELETE /api/households/:id": middleware.Roles(models.RoleAdmin),

	"POST /api/households/:id/members":             middleware.Roles(models.RoleAdmin, models.RoleEditor),
	"PUT /api/households/:id/members/:memberId":    middleware.Roles(models.RoleAdmin, models.RoleEditor),
	"DELETE /api/households/:id/members/:memberId": middleware.Roles(models.RoleAdmin, models.RoleEditor),
}

type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Logger    logging.Logger
	Redis     *redis.Client
	Publisher events.Publisher

	// LoginThrottle replaces the Redis-backed limiter on setup and login
	LoginThrottle gin.HandlerFunc
}

// Services are the collaborators built by SetupRoutes, exposed for callers
// that need them outside the HTTP layer.
type Services struct {
	Sessions *services.SessionManager
	Auth     *services.AuthService
	Audit    *services.AuditService
}

func SetupRoutes(r *gin.Engine, deps Dependencies) *Services {
	cfg := deps.Config
	log := deps.Logger

	// Initialize services
	credentials := services.NewCredentialStore(deps.DB)
	tokens := services.NewTokenIssuer(cfg.JWT)
	sessions := services.NewSessionManager(deps.DB, tokens, credentials, cfg.JWT.SessionLifetime())
	authService := services.NewAuthService(credentials, sessions, cfg.Security.BcryptCost)
	auditService := services.NewAuditService(deps.DB, deps.Publisher, log)
	userService := services.NewUserService(deps.DB, credentials, authService, sessions, auditService)
	householdService := services.NewHouseholdService(deps.DB, auditService)
	memberService := services.NewMemberService(deps.DB, auditService)
	peopleService := services.NewPeopleService(deps.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	userHandler := handlers.NewUserHandler(userService, auditService, log)
	householdHandler := handlers.NewHouseholdHandler(householdService, memberService, log)
	peopleHandler := handlers.NewPeopleHandler(peopleService, log)

	// Middleware
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.ErrorHandler(log))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "famli API is running",
			})
		})

		throttle := deps.LoginThrottle
		if throttle == nil {
			throttle = middleware.LoginThrottle(cfg.Security.RateLimit, deps.Redis, log)
		}

		// Auth routes (public). Only password checks are throttled; a
		// rejected refresh would log the client out.
		auth := api.Group("/auth")
		{
			auth.GET("/first-run", authHandler.FirstRun)
			auth.POST("/setup", throttle, authHandler.Setup)
			auth.POST("/login", throttle, authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.Gate(sessions, AccessPolicy))
	{
		users := protected.Group("/users")
		{
			users.GET("", userHandler.GetUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/me", userHandler.GetMe)
			users.PUT("/me/preferences", userHandler.UpdatePreferences)
			users.GET("/audit/log", userHandler.GetAuditLog)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		households := protected.Group("/households")
		{
			households.GET("", householdHandler.GetHouseholds)
			households.POST("", householdHandler.CreateHousehold)
			households.GET("/:id", householdHandler.GetHousehold)
			households.PUT("/:id", householdHandler.UpdateHousehold)
			households.DELETE("/:id", householdHandler.DeleteHousehold)
			households.GET("/:id/members", householdHandler.GetMembers)
			households.POST("/:id/members", householdHandler.AddMember)
			households.PUT("/:id/members/:memberId", householdHandler.UpdateMember)
			households.DELETE("/:id/members/:memberId", householdHandler.DeleteMember)
		}

		protected.GET("/people", peopleHandler.GetPeople)
	}

	return &Services{Sessions: sessions, Auth: authService, Audit: auditService}
}
