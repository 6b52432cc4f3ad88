package server

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/voltgrid/merchant-gateway/internal/config"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/handler"
	"github.com/voltgrid/merchant-gateway/internal/middleware"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/telemetry"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	Upstreams   *upstream.Registry
	RedisClient *redis.Client
}

// NewApp creates and configures the Fiber application with the given
// dependencies. A nil Upstreams registry is built from the configuration; a
// nil RedisClient disables the idempotency cache.
func NewApp(deps AppDependencies) *fiber.App {
	reg := deps.Upstreams
	if reg == nil {
		reg = upstream.NewRegistry(deps.Config.Services)
	}

	authz := service.NewAuthorizer(upstream.NewUsers(reg.User))

	// Initialize handlers
	userHandler := handler.NewUserHandler(reg.User)
	merchantHandler := handler.NewMerchantHandler(reg.Merchant, authz)
	deviceHandler := handler.NewDeviceHandler(reg.Device, authz)
	productHandler := handler.NewProductHandler(reg.Product, authz)
	voucherHandler := handler.NewVoucherHandler(reg.Voucher, authz)
	customerHandler := handler.NewCustomerHandler(reg.Customer, authz)
	orderHandler := handler.NewOrderHandler(reg.Order, authz)
	paymentHandler := handler.NewPaymentHandler(reg.Payment, authz)
	billingHandler := handler.NewBillingHandler(reg.Billing, authz)
	eventsHandler := handler.NewEventsHandler(reg.Events, authz)
	passesHandler := handler.NewPassesHandler(reg.Passes, authz)
	ocppHandler := handler.NewOCPPHandler(reg.OCPP, authz)
	ledgersHandler := handler.NewLedgersHandler(reg.Ledgers, authz)
	healthHandler := handler.NewHealthHandler(reg)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Merchant Gateway API",
		BodyLimit:    int(deps.Config.Server.BodyLimitMB * 1024 * 1024),
		ErrorHandler: errorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PATCH, PUT, DELETE, OPTIONS",
	}))
	if deps.Config.OTEL.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	// Health endpoints
	app.Get("/health", healthHandler.Live)
	app.Get("/health/upstreams", healthHandler.Upstreams)

	// Public endpoints
	app.Post("/login", userHandler.Login)
	app.Post("/forgot-password", userHandler.ForgotPassword)
	app.Get("/countries", merchantHandler.Countries)

	// Everything below requires a bearer token
	api := app.Group("/", middleware.RequireAuth(deps.Config.Auth.JWTSecret, deps.Config.Auth.JWTIssuer))
	if deps.RedisClient != nil {
		api.Use(middleware.Idempotency(deps.RedisClient, deps.Config.Redis.IdempotencyTTL))
	}

	api.Get("/users/me", userHandler.Me)
	api.Patch("/users/me", userHandler.UpdateMe)
	api.Get("/users/me/consents", userHandler.Consents)
	api.Post("/users/me/consents", userHandler.CreateConsent)
	api.Patch("/users/me/notifications", userHandler.UpdateNotifications)

	merchants := api.Group("/merchants")
	merchants.Get("/", merchantHandler.List)
	merchants.Get("/:merchantID", merchantHandler.Get)
	merchants.Patch("/:merchantID", merchantHandler.Update)
	merchants.Delete("/:merchantID/account-lists", merchantHandler.DeleteAccountLists)
	merchants.Post("/:merchantID/create-api-key", merchantHandler.CreateAPIKey)
	merchants.Get("/:merchantID/payout-frequency", merchantHandler.PayoutFrequency)

	merchants.Get("/:merchantID/devices", deviceHandler.List)
	merchants.Post("/:merchantID/devices", deviceHandler.Create)

	merchants.Get("/:merchantID/products", productHandler.List)
	merchants.Post("/:merchantID/products", productHandler.Create)

	merchants.Get("/:merchantID/vouchers", voucherHandler.List)
	merchants.Post("/:merchantID/vouchers", voucherHandler.Create)

	merchants.Get("/:merchantID/customers", customerHandler.List)
	merchants.Post("/:merchantID/customers", customerHandler.Create)

	merchants.Get("/:merchantID/orders", orderHandler.List)
	merchants.Get("/:merchantID/payouts", paymentHandler.Payouts)
	merchants.Post("/:merchantID/payments/refund", paymentHandler.Refund)

	merchants.Get("/:merchantID/billing/invoices", billingHandler.Invoices)
	merchants.Patch("/:merchantID/billing/payout-frequency", billingHandler.UpdatePayoutFrequency)

	merchants.Get("/:merchantID/events", eventsHandler.List)
	merchants.Post("/:merchantID/events/export", eventsHandler.Export)

	merchants.Get("/:merchantID/passes", passesHandler.List)
	merchants.Post("/:merchantID/passes", passesHandler.Create)

	merchants.Get("/:merchantID/ledgers", ledgersHandler.List)
	merchants.Get("/:merchantID/ledgers/:ledgerID/entries", ledgersHandler.Entries)

	products := api.Group("/products")
	products.Patch("/:productID", productHandler.Update)
	products.Delete("/:productID", productHandler.Delete)

	devices := api.Group("/devices")
	devices.Get("/:deviceID/measurements", deviceHandler.Measurements)
	devices.Patch("/:deviceID", deviceHandler.Update)
	devices.Delete("/:deviceID", deviceHandler.Delete)
	devices.Get("/:deviceID/ocpp/status", ocppHandler.Status)
	devices.Post("/:deviceID/ocpp/reset", ocppHandler.Reset)

	api.Patch("/vouchers/:code/redeem", voucherHandler.Redeem)
	api.Get("/orders/:orderID", orderHandler.Get)

	return app
}

// errorHandler is the single response/error translator. Structured envelopes
// keep their status and pass through; everything else becomes a generic 500
// with no internal detail.
func errorHandler(c *fiber.Ctx, err error) error {
	var apiErr *domain.Error
	if errors.As(err, &apiErr) {
		telemetry.SetSpanAttribute(c, "gateway.reason_phrase", apiErr.ReasonPhrase)
		return c.Status(apiErr.Status()).JSON(apiErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(domain.Error{
			Code:         fiberErr.Code,
			Description:  fiberErr.Message,
			ReasonPhrase: domain.ReasonRequest,
		})
	}

	log.Printf("Error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(domain.NewInternal())
}
