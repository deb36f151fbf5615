// Package routes defines the API routing configuration: route groups,
// handler wiring and authentication requirements.
package routes

import (
	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/cod"
	"bazaar/internal/services/payout"
	"bazaar/internal/services/vendor"
	"bazaar/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Dependencies carries the constructed services the API serves. The
// composition root builds them; routing only wires handlers.
type Dependencies struct {
	DB     *gorm.DB
	Store  cache.Store
	Alerts repositories.AlertRepository

	Vendors  vendor.Service
	Payouts  payout.Service
	COD      cod.Service
	Risk     cod.RiskScorer
	Webhooks webhook.Service

	ServiceSecret string
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	vendorHandler := handlers.NewVendorHandler(deps.Vendors)
	payoutHandler := handlers.NewPayoutHandler(deps.Payouts)
	codHandler := handlers.NewCODHandler(deps.COD, deps.Risk)
	webhookHandler := handlers.NewWebhookHandler(deps.Webhooks)
	adminHandler := handlers.NewAdminHandler(deps.Alerts)
	auth := middleware.NewAuthMiddleware(deps.ServiceSecret)

	app.Get("/health", handlers.HealthCheck(deps.DB, deps.Store))

	// Gateway callbacks authenticate by signature, not by token.
	app.Post("/webhooks/gateway", webhookHandler.HandleGatewayWebhook)

	api := app.Group("/api", auth.Handler)

	// Vendor settlement accounts. Onboarding submissions come from the
	// seller platform (service role); review actions are operator-only.
	vendors := api.Group("/vendors")
	vendors.Post("/", vendorHandler.CreateAccount)
	vendors.Get("/", middleware.RequireRole(models.RoleOperator), vendorHandler.ListAccounts)
	vendors.Get("/:vendorID", vendorHandler.GetAccount)
	vendors.Post("/:vendorID/review", middleware.RequireRole(models.RoleOperator), vendorHandler.StartReview)
	vendors.Post("/:vendorID/approve", middleware.RequireRole(models.RoleOperator), vendorHandler.Approve)
	vendors.Post("/:vendorID/reject", middleware.RequireRole(models.RoleOperator), vendorHandler.Reject)
	vendors.Post("/:vendorID/suspend", middleware.RequireRole(models.RoleOperator), vendorHandler.Suspend)
	vendors.Get("/:vendorID/payouts", payoutHandler.ListVendorPayouts)
	vendors.Get("/:vendorID/payouts/summary", payoutHandler.GetVendorSummary)

	payouts := api.Group("/payouts")
	payouts.Post("/", payoutHandler.CreatePayout)
	payouts.Get("/:payoutID", payoutHandler.GetPayout)
	payouts.Post("/:payoutID/initiate", payoutHandler.InitiateTransfer)
	payouts.Post("/:payoutID/retry", middleware.RequireRole(models.RoleOperator), payoutHandler.RetryPayout)
	payouts.Post("/:payoutID/hold", middleware.RequireRole(models.RoleOperator), payoutHandler.HoldPayout)
	payouts.Post("/:payoutID/release", middleware.RequireRole(models.RoleOperator), payoutHandler.ReleasePayout)
	payouts.Post("/:payoutID/reverse", middleware.RequireRole(models.RoleOperator), payoutHandler.ReversePayout)

	codGroup := api.Group("/cod")
	codGroup.Post("/availability", codHandler.CheckAvailability)
	codGroup.Post("/remittances", codHandler.RecordRemittance)
	codGroup.Get("/remittances", codHandler.ListRemittances)
	codGroup.Get("/remittances/:remittanceID", codHandler.GetRemittance)
	codGroup.Post("/outcomes", codHandler.RecordOrderOutcome)
	codGroup.Get("/risk/:customerID", codHandler.GetRiskProfile)
	codGroup.Post("/pincodes", middleware.RequireRole(models.RoleOperator), codHandler.AddPincodes)
	codGroup.Delete("/pincodes", middleware.RequireRole(models.RoleOperator), codHandler.RemovePincodes)

	admin := api.Group("/admin", middleware.RequireRole(models.RoleOperator))
	admin.Get("/alerts", adminHandler.ListAlerts)
	admin.Post("/alerts/:alertID/ack", adminHandler.AcknowledgeAlert)
}
