package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/middleware"
	"github.com/campuschain/credit-ledger-api/internal/models"
	"github.com/campuschain/credit-ledger-api/internal/repository"
	"github.com/campuschain/credit-ledger-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthService    *service.AuthService
	MetricsService *service.MetricsService
	UserRepository *repository.UserRepository

	Auth    *AuthHandler
	Users   *UserHandler
	Credits *CreditHandler
	Roles   *RoleHandler
	Events  *EventHandler
	Metrics *MetricsHandler
}

// Register wires the HTTP routes into the gin engine. Mutations are gated
// twice: RBAC rejects tokens whose role cannot succeed, and the ledger
// itself re-checks the caller's on-ledger role.
func Register(r *gin.Engine, prefix string, deps Dependencies) {
	r.GET("/health", deps.Metrics.Health)
	r.GET("/metrics", deps.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.Metrics(deps.MetricsService))

	auth := api.Group("/auth")
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.POST("/logout", middleware.JWT(deps.AuthService), deps.Auth.Logout)
	auth.POST("/change-password", middleware.JWT(deps.AuthService), deps.Auth.ChangePassword)
	auth.GET("/me", middleware.JWT(deps.AuthService), deps.Auth.Me)

	users := api.Group("/users")
	users.Use(middleware.JWT(deps.AuthService), middleware.RBAC(ledger.RoleAdmin))
	users.GET("", deps.Users.List)
	users.POST("", deps.Users.Create)
	users.GET("/:id", deps.Users.Get)
	users.PUT("/:id", deps.Users.Update)
	users.DELETE("/:id", deps.Users.Deactivate)

	credits := api.Group("/credits")
	credits.GET("/student/:studentId", deps.Credits.StudentCredits)
	credits.GET("/student/:studentId/transcript",
		middleware.OptionalJWT(deps.AuthService),
		middleware.Audit(deps.UserRepository, models.AuditActionCreditExport, "transcript"),
		deps.Credits.Transcript,
	)
	credits.POST("",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleTeacher),
		deps.Credits.Record,
	)
	credits.GET("/pending",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleAdmin),
		deps.Credits.Pending,
	)
	credits.POST("/:id/approve",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleAdmin),
		deps.Credits.Approve,
	)
	credits.POST("/:id/reject",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleAdmin),
		deps.Credits.Reject,
	)

	roles := api.Group("/roles")
	roles.GET("/:account", deps.Roles.Get)
	roles.POST("",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleAdmin),
		deps.Roles.Assign,
	)

	api.GET("/events",
		middleware.JWT(deps.AuthService),
		middleware.RBAC(ledger.RoleAdmin),
		deps.Events.List,
	)
}
