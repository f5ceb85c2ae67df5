package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/referral-service/internal/api/http/handlers"
	"github.com/spec-kit/referral-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Referrals      *handlers.ReferralsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)
	app.Post("/token/refresh", cfg.Users.Refresh)

	app.Post("/referral_code/get_by_email", cfg.Referrals.GetCodeByEmail)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/referral_code", cfg.Referrals.CreateCode)
	protected.Delete("/referral_code", cfg.Referrals.DeleteCode)
	protected.Get("/referrals/:userId", cfg.Referrals.ListReferrals)
}
